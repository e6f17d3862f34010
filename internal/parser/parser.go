package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"content-rag/internal/models"
)

// Parser extracts the plain text of document files.
type Parser struct {
	md goldmark.Markdown
}

func New() *Parser {
	return &Parser{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Kinds lists the media kinds Extract understands.
func (p *Parser) Kinds() []models.MediaKind {
	return models.DocumentKinds
}

// Extract returns the whole text of the file at path. A document that yields
// no text is an ExtractionError.
func (p *Parser) Extract(ctx context.Context, path string, kind models.MediaKind) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = &models.ExtractionError{Kind: kind, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	switch kind {
	case models.KindPDF:
		text, err = parsePDF(path)
	case models.KindDOCX:
		text, err = parseDOCX(path)
	case models.KindPPTX:
		text, err = parsePPTX(path)
	case models.KindXLSX:
		text, err = parseXLSX(path)
	case models.KindXLSM:
		text, err = parseXLSM(path)
	case models.KindMarkdown:
		text, err = p.parseMarkdown(path)
	case models.KindText:
		text, err = parseText(path)
	default:
		return "", &models.UnsupportedMediaError{MediaType: string(kind)}
	}
	if err != nil {
		return "", &models.ExtractionError{Kind: kind, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &models.ExtractionError{Kind: kind}
	}
	log.Debug().Str("kind", string(kind)).Int("chars", len(text)).Msg("Extracted text")
	return text, nil
}

func parsePDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	return runText(r.Editable().GetContent())
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		m := slideName.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var text strings.Builder
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.num, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.num, err)
		}
		slideText, err := runText(string(data))
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.num, err)
		}
		text.WriteString(slideText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func parseXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			writeRow(&text, cells)
		}
	}
	return text.String(), nil
}

// parseXLSM reads macro-enabled workbooks, which tealeg/xlsx rejects.
func parseXLSM(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		for _, row := range rows {
			writeRow(&text, row)
		}
	}
	return text.String(), nil
}

func writeRow(b *strings.Builder, cells []string) {
	var nonEmpty []string
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	if len(nonEmpty) == 0 {
		return
	}
	b.WriteString(strings.Join(nonEmpty, "\t"))
	b.WriteString("\n")
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// runText pulls the character data of the text runs (<w:t>, <a:t>) out of
// an Office Open XML part, one line per paragraph.
func runText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		text  strings.Builder
		inRun bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				text.WriteString("\n")
			}
		case xml.CharData:
			if inRun {
				text.Write(t)
			}
		}
	}
	return text.String(), nil
}
