package pdfops

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParsePageSelection parses a page selection string ("all", "1-5", "1,3,5",
// "1-3,7") into a sorted, deduplicated slice of 1-based page numbers.
func ParsePageSelection(pages string, maxPage int) ([]int, error) {
	pages = strings.TrimSpace(pages)
	if pages == "" || pages == "all" {
		result := make([]int, maxPage)
		for i := 0; i < maxPage; i++ {
			result[i] = i + 1
		}
		return result, nil
	}

	var result []int
	for _, part := range strings.Split(pages, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			rangeParts := strings.SplitN(part, "-", 2)
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid range start %q", part)
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid range end %q", part)
			}
			if start < 1 || end > maxPage || start > end {
				return nil, fmt.Errorf("range %q out of bounds (1-%d)", part, maxPage)
			}
			for p := start; p <= end; p++ {
				result = append(result, p)
			}
		} else {
			p, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid page number %q", part)
			}
			if p < 1 || p > maxPage {
				return nil, fmt.Errorf("page %d out of bounds (1-%d)", p, maxPage)
			}
			result = append(result, p)
		}
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("empty page selection")
	}

	seen := make(map[int]bool, len(result))
	dedup := result[:0]
	for _, p := range result {
		if !seen[p] {
			seen[p] = true
			dedup = append(dedup, p)
		}
	}
	sort.Ints(dedup)
	return dedup, nil
}

// ParsePageOrder parses an explicit page ordering ("3,1,2"). Unlike
// ParsePageSelection it preserves order and duplicates, since it drives
// reordering.
func ParsePageOrder(order string, maxPage int) ([]int, error) {
	var result []int
	for _, part := range strings.Split(order, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", part)
		}
		if p < 1 || p > maxPage {
			return nil, fmt.Errorf("page %d out of bounds (1-%d)", p, maxPage)
		}
		result = append(result, p)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty page order")
	}
	return result, nil
}

// PageStrings converts page numbers into the string form the pdfcpu API takes.
func PageStrings(pages []int) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strconv.Itoa(p)
	}
	return out
}

// SplitRanges parses a range list ("1-3,5-7") for range-mode splitting. Single
// pages are allowed and treated as one-page ranges.
func SplitRanges(ranges string, maxPage int) ([][2]int, error) {
	var out [][2]int
	for _, part := range strings.Split(ranges, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var start, end int
		var err error
		if strings.Contains(part, "-") {
			rangeParts := strings.SplitN(part, "-", 2)
			start, err = strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			end, err = strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		} else {
			start, err = strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			end = start
		}
		if start < 1 || end > maxPage || start > end {
			return nil, fmt.Errorf("range %q out of bounds (1-%d)", part, maxPage)
		}
		out = append(out, [2]int{start, end})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty range list")
	}
	return out, nil
}
