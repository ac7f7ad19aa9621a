package model

import "time"

// WeakTopicThreshold is the weakness score a topic must exceed to count as weak.
const WeakTopicThreshold = 50

type TopicStat struct {
	Topic         string    `json:"topic"`
	Solved        int       `json:"solved"`
	Total         int       `json:"total"`
	WeaknessScore int       `json:"weakness_score"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

func (s TopicStat) IsWeak() bool {
	return s.WeaknessScore > WeakTopicThreshold
}
