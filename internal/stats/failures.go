package stats

import (
	"cmp"
	"slices"
	"strings"

	"audit-analytics/internal/audit"
)

const (
	DefaultFailureTopN = 30
	DefaultPairTopN    = 25
)

// GroupingMode selects how FAIL answers are clustered into topics.
type GroupingMode string

const (
	GroupAuto             GroupingMode = "auto" // tag, then classification, then question
	GroupByQuestion       GroupingMode = "question"
	GroupByTag            GroupingMode = "tag"
	GroupByClassification GroupingMode = "classification"
)

// TopicKey derives the topic of a question: TAG:<tag>, else CLASS:<classification>, else Q:<id>.
func TopicKey(q audit.Question) string {
	if tag := strings.TrimSpace(q.Tag); tag != "" {
		return "TAG:" + tag
	}
	if class := strings.TrimSpace(q.Classification); class != "" {
		return "CLASS:" + class
	}
	return "Q:" + q.ID
}

func topicFor(mode GroupingMode, questionID string, q audit.Question, known bool) (string, bool) {
	switch mode {
	case GroupByQuestion:
		return "Q:" + questionID, true
	case GroupByTag:
		tag := strings.TrimSpace(q.Tag)
		return "TAG:" + tag, tag != ""
	case GroupByClassification:
		class := strings.TrimSpace(q.Classification)
		return "CLASS:" + class, class != ""
	default:
		if !known {
			return "Q:" + questionID, true
		}
		return TopicKey(q), true
	}
}

// TopicStat counts the failures of one topic. FailCount counts every FAIL;
// AffectedCount counts distinct executors with at least one FAIL.
type TopicStat struct {
	Topic         string `json:"topic"`
	Label         string `json:"label"`
	FailCount     int    `json:"fail_count"`
	AffectedCount int    `json:"affected_count"`
	ExampleText   string `json:"example_text,omitempty"`
}

// FailureReport holds the two views over the same topic aggregate.
type FailureReport struct {
	// ByAffected only lists topics failed by more than one person.
	ByAffected  []TopicStat `json:"by_affected"`
	ByFrequency []TopicStat `json:"by_frequency"`
	Topics      int         `json:"topics"`
	Fails       int         `json:"fails"`
}

// FailureOptions configures the analyzer. Zero TopN means the default.
type FailureOptions struct {
	Mode GroupingMode
	TopN int
}

func (o FailureOptions) resolve(defaultN int) (FailureOptions, error) {
	if o.TopN < 0 {
		return o, invalidArgf("top-N must not be negative, got %d", o.TopN)
	}
	if o.TopN == 0 {
		o.TopN = defaultN
	}
	switch o.Mode {
	case "":
		o.Mode = GroupAuto
	case GroupAuto, GroupByQuestion, GroupByTag, GroupByClassification:
	default:
		return o, invalidArgf("unknown grouping mode %q", o.Mode)
	}
	return o, nil
}

// FailureInputs are the lookups needed to attribute answers to topics and people.
type FailureInputs struct {
	Answers   []audit.Answer
	Runs      map[string]audit.Run
	Questions map[string]audit.Question
}

type topicAcc struct {
	stat   TopicStat
	people map[string]struct{}
}

// eachFail calls fn for every FAIL answer with its topic and executor ("" when unknown).
func eachFail(in FailureInputs, mode GroupingMode, fn func(topic, executor string, q audit.Question, known bool)) {
	for _, a := range in.Answers {
		if a.Value() != audit.Fail {
			continue
		}
		q, known := in.Questions[a.QuestionID]
		topic, ok := topicFor(mode, a.QuestionID, q, known)
		if !ok {
			continue
		}
		fn(topic, in.Runs[a.RunID].MemberID, q, known)
	}
}

// AnalyzeFailures groups FAIL answers by topic and produces the systemic
// (by affected people) and frequency views.
func AnalyzeFailures(in FailureInputs, opts FailureOptions) (FailureReport, error) {
	opts, err := opts.resolve(DefaultFailureTopN)
	if err != nil {
		return FailureReport{}, err
	}

	topics := make(map[string]*topicAcc)
	report := FailureReport{}
	eachFail(in, opts.Mode, func(topic, executor string, q audit.Question, known bool) {
		t, ok := topics[topic]
		if !ok {
			t = &topicAcc{
				stat:   TopicStat{Topic: topic, Label: topicLabel(topic, q)},
				people: make(map[string]struct{}),
			}
			topics[topic] = t
		}
		if t.stat.ExampleText == "" && known {
			t.stat.ExampleText = q.Text
		}
		t.stat.FailCount++
		if executor != "" {
			t.people[executor] = struct{}{}
		}
		report.Fails++
	})

	all := make([]TopicStat, 0, len(topics))
	for _, t := range topics {
		t.stat.AffectedCount = len(t.people)
		all = append(all, t.stat)
	}
	report.Topics = len(all)

	systemic := make([]TopicStat, 0)
	for _, t := range all {
		if t.AffectedCount > 1 {
			systemic = append(systemic, t)
		}
	}
	slices.SortFunc(systemic, func(a, b TopicStat) int {
		return cmpChain(cmp.Compare(b.AffectedCount, a.AffectedCount), cmp.Compare(b.FailCount, a.FailCount), cmp.Compare(a.Topic, b.Topic))
	})
	slices.SortFunc(all, func(a, b TopicStat) int {
		return cmpChain(cmp.Compare(b.FailCount, a.FailCount), cmp.Compare(b.AffectedCount, a.AffectedCount), cmp.Compare(a.Topic, b.Topic))
	})

	report.ByAffected = systemic[:min(opts.TopN, len(systemic))]
	report.ByFrequency = all[:min(opts.TopN, len(all))]
	return report, nil
}

func topicLabel(topic string, q audit.Question) string {
	_, label, ok := strings.Cut(topic, ":")
	if !ok {
		return topic
	}
	if strings.HasPrefix(topic, "Q:") && q.Text != "" {
		return q.Text
	}
	return label
}

func cmpChain(cs ...int) int {
	for _, c := range cs {
		if c != 0 {
			return c
		}
	}
	return 0
}

// PairOverlap is the number of failed topics two people share.
type PairOverlap struct {
	MemberA string   `json:"member_a"`
	MemberB string   `json:"member_b"`
	Shared  int      `json:"shared"`
	Topics  []string `json:"topics"`
}

// SharedTopicPairs compares the failed-topic sets of every pair of people and
// reports pairs sharing at least one topic, largest overlap first. It runs in
// O(P²·T) for P people and T topics, fine for tens of each; revisit if P grows
// into the hundreds.
func SharedTopicPairs(in FailureInputs, opts FailureOptions) ([]PairOverlap, error) {
	opts, err := opts.resolve(DefaultPairTopN)
	if err != nil {
		return nil, err
	}

	failed := make(map[string]map[string]struct{})
	eachFail(in, opts.Mode, func(topic, executor string, _ audit.Question, _ bool) {
		if executor == "" {
			return
		}
		set, ok := failed[executor]
		if !ok {
			set = make(map[string]struct{})
			failed[executor] = set
		}
		set[topic] = struct{}{}
	})

	people := make([]string, 0, len(failed))
	for p := range failed {
		people = append(people, p)
	}
	slices.Sort(people)

	pairs := make([]PairOverlap, 0)
	for i := 0; i < len(people); i++ {
		for j := i + 1; j < len(people); j++ {
			a, b := failed[people[i]], failed[people[j]]
			if len(b) < len(a) {
				a, b = b, a
			}
			var shared []string
			for topic := range a {
				if _, ok := b[topic]; ok {
					shared = append(shared, topic)
				}
			}
			if len(shared) == 0 {
				continue
			}
			slices.Sort(shared)
			pairs = append(pairs, PairOverlap{MemberA: people[i], MemberB: people[j], Shared: len(shared), Topics: shared})
		}
	}

	slices.SortFunc(pairs, func(x, y PairOverlap) int {
		return cmpChain(cmp.Compare(y.Shared, x.Shared), cmp.Compare(x.MemberA, y.MemberA), cmp.Compare(x.MemberB, y.MemberB))
	})
	return pairs[:min(opts.TopN, len(pairs))], nil
}
