package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"leetbot-cli/internal/model"
)

type WriteOptions struct {
	Render    RenderOptions
	HTML      bool
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
	Count   int      `json:"count"`
}

// Render returns the export document for pl: Markdown, or HTML when asHTML.
func Render(pl model.ProblemList, opt RenderOptions, asHTML bool) (string, error) {
	doc := RenderProblemsMarkdown(pl, opt)
	if !asHTML {
		return doc, nil
	}
	title := model.CompanyLabel(pl.Company) + " · " + model.TimeframeLabel(pl.Timeframe)
	return RenderHTML(title, doc)
}

// DefaultFileName is "<company>-<timeframe>.md" (or .html).
func DefaultFileName(pl model.ProblemList, asHTML bool) string {
	ext := ".md"
	if asHTML {
		ext = ".html"
	}
	name := strings.ToLower(strings.TrimSpace(pl.Company)) + "-" + strings.TrimSpace(pl.Timeframe)
	name = strings.NewReplacer(" ", "-", "/", "-", string(filepath.Separator), "-").Replace(name)
	return name + ext
}

// WriteProblems renders pl and writes it to path.
func WriteProblems(pl model.ProblemList, path string, opt WriteOptions) (WriteResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return WriteResult{}, errors.New("missing output path")
	}
	path = filepath.Clean(path)

	doc, err := Render(pl, opt.Render, opt.HTML)
	if err != nil {
		return WriteResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return WriteResult{}, err
	}
	if err := writeFile(path, []byte(doc), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	n := len(model.FilterDifficulty(pl.Problems, opt.Render.Difficulty))
	if opt.Render.Limit > 0 && n > opt.Render.Limit {
		n = opt.Render.Limit
	}
	return WriteResult{Written: []string{path}, Count: n}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
