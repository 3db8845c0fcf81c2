package evaluation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCase is returned when a benchmark case id is not part of the set.
var ErrUnknownCase = errors.New("unknown benchmark case")

// Case is a benchmark query with the assessment names a good answer should contain.
type Case struct {
	ID       string   `mapstructure:"id" json:"id"`
	Query    string   `mapstructure:"query" json:"query"`
	Expected []string `mapstructure:"expected" json:"expectedAssessments"`
}

// Set is an ordered, validated collection of benchmark cases.
type Set struct {
	cases []Case
	index map[string]int
}

// NewSet validates cases and builds a Set. Ids must be non-empty and unique
// and every case needs a query.
func NewSet(cases []Case) (*Set, error) {
	s := &Set{
		cases: make([]Case, 0, len(cases)),
		index: make(map[string]int, len(cases)),
	}

	for i, c := range cases {
		c.ID = strings.TrimSpace(c.ID)
		c.Query = strings.TrimSpace(c.Query)

		if c.ID == "" {
			return nil, fmt.Errorf("benchmark case #%d: id is empty", i)
		}
		if c.Query == "" {
			return nil, fmt.Errorf("benchmark case %q: query is empty", c.ID)
		}
		if _, ok := s.index[c.ID]; ok {
			return nil, fmt.Errorf("benchmark case %q: duplicate id", c.ID)
		}

		c.Expected = append([]string{}, c.Expected...)
		s.index[c.ID] = len(s.cases)
		s.cases = append(s.cases, c)
	}

	return s, nil
}

// Len returns the number of cases.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cases)
}

// Cases returns the cases in declaration order.
func (s *Set) Cases() []Case {
	if s == nil {
		return nil
	}
	return append([]Case{}, s.cases...)
}

// IDs returns the case ids in declaration order.
func (s *Set) IDs() []string {
	ids := make([]string, 0, s.Len())
	for _, c := range s.Cases() {
		ids = append(ids, c.ID)
	}
	return ids
}

// Get returns a case by id.
func (s *Set) Get(id string) (Case, error) {
	if s != nil {
		if i, ok := s.index[id]; ok {
			return s.cases[i], nil
		}
	}
	return Case{}, fmt.Errorf("%w: %s", ErrUnknownCase, id)
}

// Select returns the cases with the given ids, in the order given.
func (s *Set) Select(ids []string) ([]Case, error) {
	out := make([]Case, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DefaultSet returns the built-in benchmark queries.
func DefaultSet() *Set {
	s, err := NewSet(defaultCases)
	if err != nil {
		panic(fmt.Sprintf("default benchmark set: %v", err))
	}
	return s
}

var defaultCases = []Case{
	{
		ID:    "java-dev",
		Query: "I am hiring for Java developers who can also collaborate effectively with my business teams. Looking for an assessment(s) that can be completed in 40 minutes.",
		Expected: []string{
			"Core Java (Entry Level) (New)",
			"Java 8 (New)",
			"Core Java (Advanced Level) (New)",
			"Automata - Fix (New)",
			"Agile Software Development",
			"Technology Professional 8.0 Job Focused Assessment",
			"Computer Science (New)",
		},
	},
	{
		ID:    "sales-role",
		Query: "I want to hire new graduates for a sales role in my company, the budget is for about an hour for each test. Give me some options",
		Expected: []string{
			"Entry level Sales 7.1 (International)",
			"Entry Level Sales Sift Out 7.1",
			"Entry Level Sales Solution",
			"Sales Representative Solution",
			"Sales Support Specialist Solution",
			"Technical Sales Associate Solution",
			"SVAR - Spoken English (Indian Accent) (New)",
			"Sales & Service Phone Solution",
			"Sales & Service Phone Simulation",
			"English Comprehension (New)",
		},
	},
	{
		ID:    "coo-china",
		Query: "I am looking for a COO for my company in China and I want to see if they are culturally a right fit for our company. Suggest me an assessment that they can complete in about an hour",
		Expected: []string{
			"Motivation Questionnaire MQM5",
			"Global Skills Assessment",
			"Graduate 8.0 Job Focused Assessment",
		},
	},
	{
		ID:    "content-writer",
		Query: "Content Writer required, expert in English and SEO.",
		Expected: []string{
			"Drupal (New)",
			"Search Engine Optimization (New)",
			"Administrative Professional - Short Form",
			"Entry Level Sales Sift Out 7.1",
			"General Entry Level – Data Entry 7.0 Solution",
		},
	},
	{
		ID:    "bank-admin",
		Query: "ICICI Bank Assistant Admin, Experience required 0-2 years, test should be 30-40 mins long",
		Expected: []string{
			"Administrative Professional - Short Form",
			"Verify - Numerical Ability",
			"Financial Professional - Short Form",
			"Bank Administrative Assistant - Short Form",
			"General Entry Level – Data Entry 7.0 Solution",
			"Basic Computer Literacy (Windows 10) (New)",
		},
	},
}
