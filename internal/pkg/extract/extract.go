package extract

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/bcalm/launchpad_server/config"
)

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:cr\s*/>`)
	tabTag       = regexp.MustCompile(`<w:tab\s*/>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// Extractor turns an uploaded CV into plain text. PDFs go through unipdf
// when a license key is configured and through ledongthuc/pdf otherwise.
type Extractor struct {
	licenseKey  string
	licenseOnce sync.Once
}

func New(cfg config.PDFConfig) *Extractor {
	return &Extractor{licenseKey: cfg.LicenseKey}
}

// Extract returns the text of the file, or "" when it cannot be read.
// It never fails: errors are logged and the caller decides what empty text means.
func (e *Extractor) Extract(filePath, mimeType string) string {
	var (
		text string
		err  error
	)

	switch mimeType {
	case config.MimePDF:
		text, err = e.extractPDF(filePath)
	case config.MimeDOC, config.MimeDOCX:
		// legacy .doc is tried with the OOXML reader and usually fails
		text, err = extractDocx(filePath)
	default:
		err = fmt.Errorf("unsupported mime type %q", mimeType)
	}

	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Str("mime_type", mimeType).Msg("text extraction failed")
		return ""
	}
	return text
}

func (e *Extractor) extractPDF(filePath string) (string, error) {
	if e.licenseKey != "" {
		text, err := e.extractPDFLicensed(filePath)
		if err == nil && text != "" {
			return text, nil
		}
		log.Debug().Err(err).Str("file", filePath).Msg("unipdf returned no text, trying plain reader")
	}
	return extractPDFPlain(filePath)
}

func (e *Extractor) extractPDFLicensed(filePath string) (string, error) {
	e.licenseOnce.Do(func() {
		if err := license.SetMeteredKey(e.licenseKey); err != nil {
			log.Error().Err(err).Msg("failed to set PDF license key")
		}
	})

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("skipping unreadable page")
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("skipping page")
			continue
		}

		pageText, err := ex.ExtractText()
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("skipping page")
			continue
		}

		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String()), nil
}

// extractPDFPlain reads the text layer without a license. The reader panics
// on some malformed content streams, so a panic becomes an error.
func extractPDFPlain(filePath string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("skipping page")
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String()), nil
}

func extractDocx(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer r.Close()

	return documentXMLToText(r.Editable().GetContent()), nil
}

// documentXMLToText flattens word/document.xml into paragraphs of plain text.
func documentXMLToText(content string) string {
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = tabTag.ReplaceAllString(content, "\t")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = blankLines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
