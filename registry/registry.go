// Package registry holds the static table of document collections. Every
// collection the platform knows about is defined here at process start;
// nothing mutates the table at runtime.
package registry

import (
	"fmt"
	"sort"
)

// ErrUnknownCollection is returned whenever a collection key is not present
// in the registry. Downstream code checks keys defensively at every boundary.
var ErrUnknownCollection = fmt.Errorf("unknown collection")

// Definition describes one logical collection: how its documents are
// chunked, how many results a similarity query may return, and which
// metadata fields a classified document is expected to carry. The Key is
// also the physical collection name in the vector store.
type Definition struct {
	Key            string
	DisplayName    string
	Description    string
	ChunkSize      int
	ChunkOverlap   int
	SimilarityTopK int
	RequiredFields []string
	OptionalFields []string
	Tags           map[string]string
}

// Registry is an immutable lookup table of collection definitions.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// Collection keys.
const (
	Resumes            = "resumes"
	ProjectsExperience = "projects_experience"
	JobPostings        = "job_postings"
	Interviews         = "interviews"
	InterviewQnABank   = "interview_qna_bank"
	CodeAnalysis       = "code_analysis"
	IndustryTrends     = "industry_trends"
)

// FallbackKey is the collection the classifier defaults to when nothing
// else matches.
const FallbackKey = ProjectsExperience

func builtinDefinitions() []Definition {
	return []Definition{
		{
			Key:            Resumes,
			DisplayName:    "Resumes",
			Description:    "All versions of the user's resume, for matching, recommendations and interview preparation.",
			ChunkSize:      196,
			ChunkOverlap:   30,
			SimilarityTopK: 10,
			RequiredFields: []string{"target_job", "language", "last_updated"},
			OptionalFields: []string{"version", "company_focus"},
			Tags:           map[string]string{"type": "resume", "purpose": "job_matching"},
		},
		{
			Key:            ProjectsExperience,
			DisplayName:    "Projects & Experience",
			Description:    "Detailed project and work-experience material backing the user's career narrative.",
			ChunkSize:      512,
			ChunkOverlap:   50,
			SimilarityTopK: 10,
			RequiredFields: []string{"project_name", "document_type", "is_technical"},
			OptionalFields: []string{"related_resume_version", "tech_stack", "duration"},
			Tags:           map[string]string{"type": "experience", "purpose": "resume_support"},
		},
		{
			Key:            JobPostings,
			DisplayName:    "Job Postings",
			Description:    "Collected job descriptions for market analysis, skill-gap detection and resume matching.",
			ChunkSize:      384,
			ChunkOverlap:   30,
			SimilarityTopK: 10,
			RequiredFields: []string{"company_name", "job_title", "source_url"},
			OptionalFields: []string{"salary_range", "location", "experience_level"},
			Tags:           map[string]string{"type": "job_posting", "purpose": "market_analysis"},
		},
		{
			Key:            Interviews,
			DisplayName:    "Interviews",
			Description:    "Interview records, questions and feedback for review and blind-spot discovery.",
			ChunkSize:      256,
			ChunkOverlap:   20,
			SimilarityTopK: 12,
			RequiredFields: []string{"company_name", "job_title", "interview_round", "result", "interview_date"},
			OptionalFields: []string{"interviewer", "difficulty", "feedback"},
			Tags:           map[string]string{"type": "interview", "purpose": "interview_prep"},
		},
		{
			Key:            InterviewQnABank,
			DisplayName:    "Interview Q&A Bank",
			Description:    "General interview question banks collected from public sources, for mock training.",
			ChunkSize:      128,
			ChunkOverlap:   10,
			SimilarityTopK: 15,
			RequiredFields: []string{"source", "job_domain", "question_type"},
			OptionalFields: []string{"difficulty", "frequency", "tags"},
			Tags:           map[string]string{"type": "qna_bank", "purpose": "interview_training"},
		},
		{
			Key:            CodeAnalysis,
			DisplayName:    "Code Analysis",
			Description:    "Static-analysis summaries of the user's codebases, for objective skill assessment.",
			ChunkSize:      1024,
			ChunkOverlap:   100,
			SimilarityTopK: 5,
			RequiredFields: []string{"repo_name", "primary_language", "key_frameworks", "analysis_date"},
			OptionalFields: []string{"complexity_score", "test_coverage", "code_quality"},
			Tags:           map[string]string{"type": "code_analysis", "purpose": "skill_assessment"},
		},
		{
			Key:            IndustryTrends,
			DisplayName:    "Industry Trends",
			Description:    "Industry reports and technology trend articles, for strategic context.",
			ChunkSize:      512,
			ChunkOverlap:   50,
			SimilarityTopK: 8,
			RequiredFields: []string{"report_source", "publish_date", "key_topics"},
			OptionalFields: []string{"industry", "region", "trend_type"},
			Tags:           map[string]string{"type": "industry_trends", "purpose": "market_insight"},
		},
	}
}

// New builds the registry from the built-in definitions, failing fast on an
// inconsistent definition rather than at first use.
func New() (*Registry, error) {
	return newFrom(builtinDefinitions())
}

func newFrom(defs []Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if err := validate(def); err != nil {
			return nil, fmt.Errorf("collection %q: %w", def.Key, err)
		}
		if _, exists := r.defs[def.Key]; exists {
			return nil, fmt.Errorf("collection %q: duplicate key", def.Key)
		}
		r.defs[def.Key] = def
		r.order = append(r.order, def.Key)
	}
	sort.Strings(r.order)
	return r, nil
}

func validate(def Definition) error {
	if def.Key == "" {
		return fmt.Errorf("empty key")
	}
	if def.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", def.ChunkSize)
	}
	if def.ChunkOverlap < 0 || def.ChunkOverlap >= def.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be non-negative and smaller than chunk size %d", def.ChunkOverlap, def.ChunkSize)
	}
	if def.SimilarityTopK <= 0 {
		return fmt.Errorf("similarity top-k must be positive, got %d", def.SimilarityTopK)
	}
	return nil
}

// Get returns the definition for key, or ErrUnknownCollection.
func (r *Registry) Get(key string) (Definition, error) {
	def, ok := r.defs[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownCollection, key)
	}
	return def, nil
}

// Has reports whether key names a known collection.
func (r *Registry) Has(key string) bool {
	_, ok := r.defs[key]
	return ok
}

// All returns every definition in stable key order.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.defs[key])
	}
	return out
}

// Keys returns every collection key in stable order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
