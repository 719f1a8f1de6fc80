package pdfops

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ScrubText overwrites every occurrence of the given strings inside the page
// content streams with spaces, so the text can no longer be extracted or
// searched. Keys are 1-based page numbers. The file is rewritten in place.
//
// Matching happens on the decoded stream bytes, which covers simple-font
// string literals. Text split across kerned TJ array elements or encoded
// through subset CID fonts is not matched; the drawn cover box still hides
// it visually.
func ScrubText(path string, terms map[int][]string) error {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return err
	}

	for pageNr, list := range terms {
		if len(list) == 0 {
			continue
		}
		d, _, _, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return fmt.Errorf("page %d: %w", pageNr, err)
		}
		obj, found := d.Find("Contents")
		if !found {
			continue
		}
		if err := scrubContents(ctx, obj, list); err != nil {
			return fmt.Errorf("page %d: %w", pageNr, err)
		}
	}

	return api.WriteContextFile(ctx, path)
}

func scrubContents(ctx *model.Context, obj types.Object, terms []string) error {
	switch o := obj.(type) {
	case types.IndirectRef:
		resolved, err := ctx.Dereference(o)
		if err != nil {
			return err
		}
		if arr, ok := resolved.(types.Array); ok {
			return scrubContents(ctx, arr, terms)
		}
		return scrubStream(ctx, o, terms)
	case types.Array:
		for _, el := range o {
			ir, ok := el.(types.IndirectRef)
			if !ok {
				continue
			}
			if err := scrubStream(ctx, ir, terms); err != nil {
				return err
			}
		}
	}
	return nil
}

func scrubStream(ctx *model.Context, ir types.IndirectRef, terms []string) error {
	entry, found := ctx.FindTableEntry(ir.ObjectNumber.Value(), ir.GenerationNumber.Value())
	if !found || entry.Object == nil {
		return nil
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return nil
	}
	if err := sd.Decode(); err != nil {
		return err
	}

	content := sd.Content
	changed := false
	for _, t := range terms {
		b := []byte(t)
		if len(b) == 0 || !bytes.Contains(content, b) {
			continue
		}
		content = bytes.ReplaceAll(content, b, bytes.Repeat([]byte(" "), len(b)))
		changed = true
	}
	if !changed {
		return nil
	}

	sd.Content = content
	sd.Raw = nil
	if err := sd.Encode(); err != nil {
		return err
	}
	sl := int64(len(sd.Raw))
	sd.StreamLength = &sl
	sd.Dict.Update("Length", types.Integer(len(sd.Raw)))
	entry.Object = sd
	return nil
}
