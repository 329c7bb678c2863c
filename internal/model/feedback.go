package model

import "strings"

// FeedbackCategory 는 피드백 분류. payload 에는 소문자 label 이 들어간다.
type FeedbackCategory int

const (
	CategoryGeneral FeedbackCategory = iota
	CategoryUI
	CategoryGameplay
	CategoryPerformance
	CategoryBugs
	CategoryControls
	CategoryAudio
	CategoryBalance
	CategoryGraphics
	CategoryVisual
	CategoryArt
	CategoryOther
)

// AllCategories 는 폼 dropdown 표시 순서.
var AllCategories = []FeedbackCategory{
	CategoryGeneral,
	CategoryUI,
	CategoryGameplay,
	CategoryPerformance,
	CategoryBugs,
	CategoryControls,
	CategoryAudio,
	CategoryBalance,
	CategoryGraphics,
	CategoryVisual,
	CategoryArt,
	CategoryOther,
}

var categoryLabels = map[FeedbackCategory]string{
	CategoryGeneral:     "General",
	CategoryUI:          "UI",
	CategoryGameplay:    "Gameplay",
	CategoryPerformance: "Performance",
	CategoryBugs:        "Bugs",
	CategoryControls:    "Controls",
	CategoryAudio:       "Audio",
	CategoryBalance:     "Balance",
	CategoryGraphics:    "Graphics",
	CategoryVisual:      "Visual",
	CategoryArt:         "Art",
	CategoryOther:       "Other",
}

// Label 은 사람이 읽는 이름. 정의되지 않은 값은 "Other".
func (c FeedbackCategory) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryOther]
}

// Wire 는 payload 용 소문자 label.
func (c FeedbackCategory) Wire() string {
	return strings.ToLower(c.Label())
}

func (c FeedbackCategory) String() string { return c.Label() }
