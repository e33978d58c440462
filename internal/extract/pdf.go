package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF collects text-show fragments page by page. Fragments on a page are
// joined with a single space and every page ends with a newline.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := make([][]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, pageFragments(page))
	}
	return joinPages(pages), nil
}

func joinPages(pages [][]string) string {
	var buf strings.Builder
	for _, fragments := range pages {
		buf.WriteString(strings.Join(fragments, " "))
		buf.WriteString("\n")
	}
	return buf.String()
}

func pageFragments(page pdf.Page) []string {
	encoders := make(map[string]pdf.TextEncoding)
	for _, name := range page.Fonts() {
		encoders[name] = page.Font(name).Encoder()
	}

	var (
		fragments []string
		enc       pdf.TextEncoding
	)
	decode := func(raw string) string {
		if enc == nil {
			return raw
		}
		return enc.Decode(raw)
	}
	add := func(s string) {
		if s != "" {
			fragments = append(fragments, s)
		}
	}

	interpret := func(strm pdf.Value) {
		pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
			n := stk.Len()
			args := make([]pdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}
			switch op {
			case "Tf":
				if len(args) == 2 {
					enc = encoders[args[0].Name()]
				}
			case "Tj", "'":
				if len(args) == 1 {
					add(decode(args[0].RawString()))
				}
			case "\"":
				if len(args) == 3 {
					add(decode(args[2].RawString()))
				}
			case "TJ":
				if len(args) != 1 {
					return
				}
				var run strings.Builder
				arr := args[0]
				for i := 0; i < arr.Len(); i++ {
					if item := arr.Index(i); item.Kind() == pdf.String {
						run.WriteString(decode(item.RawString()))
					}
				}
				add(run.String())
			}
		})
	}

	contents := page.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Stream:
		interpret(contents)
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			if part := contents.Index(i); part.Kind() == pdf.Stream {
				interpret(part)
			}
		}
	}
	return fragments
}
