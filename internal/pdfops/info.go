package pdfops

import (
	"os"

	"github.com/gen2brain/go-fitz"
)

// Info describes a PDF document's metadata and geometry.
type Info struct {
	PageCount  int     `json:"page_count"`
	FileSize   int64   `json:"file_size"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Subject    string  `json:"subject"`
	Creator    string  `json:"creator"`
	Producer   string  `json:"producer"`
	Encrypted  bool    `json:"encrypted"`
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
}

// ReadInfo extracts document metadata and the size of the first page in
// points.
func ReadInfo(path string) (Info, error) {
	var info Info

	st, err := os.Stat(path)
	if err != nil {
		return info, err
	}
	info.FileSize = st.Size()

	doc, err := fitz.New(path)
	if err != nil {
		return info, err
	}
	defer doc.Close()

	info.PageCount = doc.NumPage()

	meta := doc.Metadata()
	info.Title = meta["title"]
	info.Author = meta["author"]
	info.Subject = meta["subject"]
	info.Creator = meta["creator"]
	info.Producer = meta["producer"]
	info.Encrypted = meta["encryption"] != "" && meta["encryption"] != "None"

	if info.PageCount > 0 {
		if b, err := doc.Bound(0); err == nil {
			// go-fitz renders at 72dpi, so pixel bounds equal points.
			info.PageWidth = float64(b.Dx())
			info.PageHeight = float64(b.Dy())
		}
	}
	return info, nil
}
