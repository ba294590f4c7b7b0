// Package extractor turns uploaded documents into structured candidate
// profiles. The plain-text extractor ships with the core; PDF and DOCX
// extraction plug in behind the same port via an external conversion service.
package extractor

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// contentTypeFromExt mirrors the upload validation table: only these
// extensions are accepted at the boundary.
func contentTypeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return ""
}

// PlainText parses resumes in a line-oriented "Key: value" format. Any line
// outside a recognized section accumulates into the profile free text.
type PlainText struct{}

// NewPlainText builds the extractor.
func NewPlainText() *PlainText { return &PlainText{} }

// Extract implements domain.DocumentExtractor.
func (p *PlainText) Extract(_ domain.Context, data []byte, filename string) (domain.CandidateProfile, error) {
	ext := filepath.Ext(filename)
	ct := contentTypeFromExt(ext)
	if ct == "" {
		return domain.CandidateProfile{}, fmt.Errorf("op=extractor.Extract: %w: unsupported extension %q", domain.ErrInvalidArgument, ext)
	}
	if ct != "text/plain" && ct != "text/markdown" {
		return domain.CandidateProfile{}, fmt.Errorf("op=extractor.Extract: %w: %s needs an external conversion service", domain.ErrInvalidArgument, ct)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.CandidateProfile{}, fmt.Errorf("op=extractor.Extract: %w: empty document", domain.ErrInvalidArgument)
	}

	var profile domain.CandidateProfile
	var free []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			free = append(free, line)
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			profile.Name = value
		case "location":
			profile.Location = value
		case "skills":
			profile.Skills = append(profile.Skills, parseSkills(value)...)
		case "values":
			for _, v := range strings.Split(value, ",") {
				if v = strings.TrimSpace(v); v != "" {
					profile.Values = append(profile.Values, v)
				}
			}
		case "languages":
			for _, l := range strings.Split(value, ",") {
				if l = strings.TrimSpace(l); l != "" {
					profile.Languages = append(profile.Languages, domain.Language{Name: strings.ToLower(l), Proficiency: "fluent"})
				}
			}
		default:
			free = append(free, line)
		}
	}
	if err := sc.Err(); err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("op=extractor.Extract: scan: %w", err)
	}
	profile.FreeText = strings.Join(free, "\n")
	if profile.Name == "" && len(profile.Skills) == 0 && profile.FreeText == "" {
		return domain.CandidateProfile{}, fmt.Errorf("op=extractor.Extract: %w: no recognizable content", domain.ErrInvalidArgument)
	}
	return profile, nil
}

// parseSkills reads "python (expert), go (advanced), sql" style lists. A
// missing level defaults to intermediate.
func parseSkills(value string) []domain.Skill {
	var out []domain.Skill
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := part
		level := domain.LevelIntermediate
		if open := strings.Index(part, "("); open >= 0 {
			if end := strings.Index(part[open:], ")"); end > 0 {
				if lv, ok := parseLevel(part[open+1 : open+end]); ok {
					level = lv
				}
				name = strings.TrimSpace(part[:open])
			}
		}
		if name == "" {
			continue
		}
		out = append(out, domain.Skill{Name: strings.ToLower(name), Level: level})
	}
	return out
}

func parseLevel(s string) (domain.SkillLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return domain.LevelBeginner, true
	case "intermediate":
		return domain.LevelIntermediate, true
	case "advanced":
		return domain.LevelAdvanced, true
	case "expert":
		return domain.LevelExpert, true
	}
	return "", false
}
