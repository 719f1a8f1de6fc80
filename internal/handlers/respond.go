package handlers

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	u "docbelt/internal/utils"
)

// fileResult builds the standard success payload for an operation that
// produced a single output file.
func (svc *Service) fileResult(outPath string, start time.Time, extras fiber.Map) (fiber.Map, error) {
	st, err := os.Stat(outPath)
	if err != nil {
		u.Error("Output file missing after conversion", "path", outPath, "error", err)
		return nil, fiber.NewError(fiber.StatusInternalServerError, "output file missing")
	}
	name := filepath.Base(outPath)
	m := fiber.Map{
		"success":         true,
		"filename":        name,
		"file_url":        "/downloads/" + name,
		"file_size":       st.Size(),
		"processing_time": roundSeconds(time.Since(start)),
	}
	for k, v := range extras {
		m[k] = v
	}
	return m, nil
}

// filesResult builds the success payload for operations that produce several
// output files (split, extract-images).
func (svc *Service) filesResult(outPaths []string, start time.Time, extras fiber.Map) (fiber.Map, error) {
	files := make([]fiber.Map, 0, len(outPaths))
	for _, p := range outPaths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusInternalServerError, "output file missing")
		}
		name := filepath.Base(p)
		files = append(files, fiber.Map{
			"filename":  name,
			"file_url":  "/downloads/" + name,
			"file_size": st.Size(),
		})
	}
	m := fiber.Map{
		"success":         true,
		"files":           files,
		"file_count":      len(files),
		"processing_time": roundSeconds(time.Since(start)),
	}
	for k, v := range extras {
		m[k] = v
	}
	return m, nil
}

// roundSeconds converts a duration to seconds with two decimal places.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// round2 rounds a float to two decimal places, e.g. compression ratios.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
