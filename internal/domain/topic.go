package domain

// TopicTable maps short topic labels (used as folder names) to longer
// descriptions that embed better than the label alone.
type TopicTable map[string]string

// DefaultTopics is the built-in table used when configuration provides none.
var DefaultTopics = TopicTable{
	"SGG":        "Scene Graph Generation in Computer Vision and Images",
	"RL":         "Reinforcement Learning and Multi-Agent Systems",
	"Hypergraph": "Hypergraph Neural Networks and Relation Learning",
	"CV":         "Computer Vision",
	"NLP":        "Natural Language Processing",
}

// Describe returns the description for label, or the label itself when the
// table has no entry for it.
func (t TopicTable) Describe(label string) string {
	if d, ok := t[label]; ok {
		return d
	}
	return label
}
