package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/hyperifyio/copyfinder/internal/textnorm"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// FileProvider serves records from a local JSON array of tweet records for
// offline runs and tests. A quoted query matches records containing the
// phrase; an unquoted one matches records containing every term.
type FileProvider struct {
	Path string
	// Label overrides the reported source name. Defaults to "file".
	Label string
}

func (f *FileProvider) Name() string {
	if f.Label != "" {
		return f.Label
	}
	return "file"
}

func (f *FileProvider) Search(_ context.Context, query string, _ Options) (Response, error) {
	if strings.TrimSpace(f.Path) == "" {
		return Response{}, errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return Response{}, err
	}
	var raw []tweet.Record
	if err := json.Unmarshal(b, &raw); err != nil {
		return Response{}, err
	}
	match := matcher(query)
	var resp Response
	for _, r := range raw {
		if r.Content == "" {
			continue
		}
		if match(strings.ToLower(textnorm.Normalize(r.Content))) {
			if r.Date == "" {
				r.Date = tweet.UnknownDate
			}
			r.Source = f.Name()
			resp.Results = append(resp.Results, r)
		}
	}
	return resp, nil
}

func matcher(query string) func(string) bool {
	q := strings.TrimSpace(query)
	if len(q) >= 2 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`) {
		phrase := strings.ToLower(textnorm.Normalize(q[1 : len(q)-1]))
		return func(s string) bool { return strings.Contains(s, phrase) }
	}
	terms := textnorm.Tokens(strings.ToLower(textnorm.Normalize(q)))
	return func(s string) bool {
		for _, t := range terms {
			if !strings.Contains(s, t) {
				return false
			}
		}
		return true
	}
}
