package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/yuna-ai/yuna-server/pkg/errors"
)

// maxDocumentBytes caps uploads before text extraction
const maxDocumentBytes = 32 << 20

// Analyzer runs document analysis: extract text from an upload, then ask the
// chat collaborator about it
type Analyzer struct {
	chat ChatService
}

// NewAnalyzer creates a document analyzer delegating to chat
func NewAnalyzer(chat ChatService) *Analyzer {
	return &Analyzer{chat: chat}
}

// Analyze extracts the text of the uploaded document and returns the chat
// collaborator's answer to the given question about it. An empty question
// asks for a summary.
func (a *Analyzer) Analyze(ctx context.Context, username, filename, question string, r io.Reader) (string, error) {
	text, err := extractText(filename, r)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.NewInvalidInputError("document contains no extractable text")
	}

	if question == "" {
		question = "Summarize this document."
	}
	prompt := fmt.Sprintf("%s\n\n---\n%s", question, text)

	return a.chat.Generate(ctx, username, prompt)
}

// extractText pulls plain text out of an upload, decoding PDFs and passing
// text files through
func extractText(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes))
	if err != nil {
		return "", errors.NewIOError("failed to read uploaded document", err)
	}

	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return extractPDFText(data)
	}
	return string(data), nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewInvalidInputError("failed to parse PDF document")
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
