package classify

import (
	"strings"

	"github.com/techcoach/careerkb/registry"
)

// heuristicRule maps filename keywords to a collection. Checked in order;
// the first matching rule wins.
type heuristicRule struct {
	keywords []string
	key      string
	desc     string
	abstract string
}

var heuristicRules = []heuristicRule{
	{
		keywords: []string{"resume", "cv", "简历"},
		key:      registry.Resumes,
		desc:     "Personal resume document",
		abstract: "Resume covering personal details, work experience and skills",
	},
	{
		keywords: []string{"project", "experience", "项目", "经验"},
		key:      registry.ProjectsExperience,
		desc:     "Project experience document",
		abstract: "Document describing project experience and technical work",
	},
	{
		keywords: []string{"job", "jd", "posting", "招聘", "职位"},
		key:      registry.JobPostings,
		desc:     "Job posting",
		abstract: "Job description with requirements and company details",
	},
	{
		keywords: []string{"interview", "面试"},
		key:      registry.Interviews,
		desc:     "Interview record",
		abstract: "Record of interview questions, answers and feedback",
	},
}

// fallback classifies by filename keyword matching. Cleaning is not
// possible without the model, so the text passes through unchanged.
func (c *Classifier) fallback(text, filename, reason string) Result {
	lower := strings.ToLower(filename)

	key := registry.FallbackKey
	description := "General document"
	abstract := "Document that could not be classified automatically"

	for _, rule := range heuristicRules {
		if containsAny(lower, rule.keywords) {
			key = rule.key
			description = rule.desc
			abstract = rule.abstract
			break
		}
	}

	metadata := heuristicMetadata(key, filename)
	c.logger.Printf("heuristic fallback classified %q into %s (%s)", filename, key, reason)

	return Result{
		CollectionKey:   key,
		RenamedFilename: c.defaultFilename(filename),
		Description:     truncateRunes(description, maxDescriptionLen),
		Abstract:        truncateRunes(abstract, maxAbstractLen),
		CleanedText:     text,
		Metadata:        TruncateMetadata(metadata),
		Confidence:      fallbackConfidence,
		Reasoning:       "heuristic filename classification: " + reason,
		Degraded:        true,
	}
}

func heuristicMetadata(key, filename string) map[string]any {
	switch key {
	case registry.Resumes:
		return map[string]any{
			"target_job":   "unknown",
			"language":     detectLanguage(filename),
			"last_updated": "unknown",
		}
	case registry.JobPostings:
		return map[string]any{
			"company_name": "unknown",
			"job_title":    "unknown",
			"source_url":   "",
		}
	case registry.Interviews:
		return map[string]any{
			"company_name": "unknown",
			"job_title":    "unknown",
		}
	default:
		name := filename
		if name == "" {
			name = "untitled"
		}
		return map[string]any{
			"project_name":  name,
			"document_type": "other",
			"is_technical":  false,
		}
	}
}

func detectLanguage(filename string) string {
	for _, r := range filename {
		if r >= 0x4E00 && r <= 0x9FFF {
			return "zh"
		}
	}
	return "en"
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
