package web

import (
	"math"

	"resume-matcher/internal/analyses"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/sessions"
)

// Grade is the label shown under the score.
type Grade struct {
	Label string
	Class string
}

// GradeFor maps a score to its label.
func GradeFor(score int) Grade {
	switch {
	case score >= 90:
		return Grade{Label: "Excellent", Class: "text-emerald-600"}
	case score >= 75:
		return Grade{Label: "Good", Class: "text-emerald-500"}
	case score >= 50:
		return Grade{Label: "Average", Class: "text-amber-500"}
	default:
		return Grade{Label: "Needs Work", Class: "text-red-500"}
	}
}

// Tone is the gauge colour family.
type Tone string

const (
	ToneEmerald Tone = "emerald"
	ToneAmber   Tone = "amber"
	ToneRed     Tone = "red"
)

// ToneFor maps a score to the gauge colour.
func ToneFor(score int) Tone {
	switch {
	case score >= 70:
		return ToneEmerald
	case score >= 50:
		return ToneAmber
	default:
		return ToneRed
	}
}

// Hex returns the fill colour used by the gauge arc.
func (t Tone) Hex() string {
	switch t {
	case ToneEmerald:
		return "#10b981"
	case ToneAmber:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

const gaugeRadius = 80.0

// Gauge describes a semicircular arc filled in proportion to the score.
type Gauge struct {
	Radius float64
	Length float64
	Filled float64
}

// Offset is the stroke-dashoffset that leaves only the filled part visible.
func (g Gauge) Offset() float64 {
	return g.Length - g.Filled
}

// GaugeFor builds the arc for a score in [0, 100]. Out-of-range input is clamped.
func GaugeFor(score int) Gauge {
	s := math.Max(0, math.Min(100, float64(score)))
	length := math.Pi * gaugeRadius
	return Gauge{
		Radius: gaugeRadius,
		Length: length,
		Filled: s / 100 * length,
	}
}

type resultView struct {
	analyses.Result
	Grade Grade
	Tone  Tone
	Gauge Gauge
}

type pageData struct {
	Kind      sessions.ViewKind
	Draft     sessions.Draft
	Error     string
	Loading   bool
	CanSubmit bool
	Accept    string
	Refresh   int
	Result    *resultView
}

const loadingRefreshSeconds = 2

func newPageData(st sessions.State) pageData {
	data := pageData{
		Kind:   st.Kind(),
		Draft:  st.Draft(),
		Accept: extract.AcceptAttr,
	}
	switch v := st.View.(type) {
	case sessions.InputView:
		data.Error = v.Error
	case sessions.LoadingView:
		data.Loading = true
		data.Refresh = loadingRefreshSeconds
	case sessions.ResultsView:
		data.Result = &resultView{
			Result: v.Result,
			Grade:  GradeFor(v.Result.Score),
			Tone:   ToneFor(v.Result.Score),
			Gauge:  GaugeFor(v.Result.Score),
		}
	}
	data.CanSubmit = !data.Loading && sessions.CanSubmit(data.Draft.ResumeText, data.Draft.JobDescription)
	return data
}
