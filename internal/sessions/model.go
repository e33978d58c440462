package sessions

import (
	"encoding/json"
	"fmt"
	"time"

	"resume-matcher/internal/analyses"
)

// Mode is the active resume input tab.
type Mode string

const (
	ModePaste  Mode = "paste"
	ModeUpload Mode = "upload"
)

// ParseMode returns m when it names a known tab, else ModePaste.
func ParseMode(m string) Mode {
	if Mode(m) == ModeUpload {
		return ModeUpload
	}
	return ModePaste
}

// Draft is the entry form content that survives failed attempts.
type Draft struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
	Mode           Mode   `json:"mode"`
	FileName       string `json:"fileName,omitempty"`
	FileError      string `json:"fileError,omitempty"`
}

// ViewKind names the active view.
type ViewKind string

const (
	KindInput   ViewKind = "input"
	KindLoading ViewKind = "loading"
	KindResults ViewKind = "results"
)

// View is one of InputView, LoadingView or ResultsView.
type View interface {
	Kind() ViewKind
	isView()
}

// InputView is the entry form, optionally with a top-level error banner.
type InputView struct {
	Draft Draft
	Error string
}

// LoadingView is the entry form while an analysis is outstanding.
type LoadingView struct {
	Draft     Draft
	StartedAt time.Time
}

// ResultsView carries the report of a successful analysis.
type ResultsView struct {
	Result analyses.Result
}

func (InputView) Kind() ViewKind   { return KindInput }
func (LoadingView) Kind() ViewKind { return KindLoading }
func (ResultsView) Kind() ViewKind { return KindResults }

func (InputView) isView()   {}
func (LoadingView) isView() {}
func (ResultsView) isView() {}

// State is the per-session view state. Generation increases on every submit
// and reset; an analysis may only land on the generation that started it.
type State struct {
	Generation uint64
	View       View
}

// NewState returns the initial entry form.
func NewState() State {
	return State{View: InputView{Draft: Draft{Mode: ModePaste}}}
}

// Kind returns the active view kind.
func (s State) Kind() ViewKind {
	if s.View == nil {
		return KindInput
	}
	return s.View.Kind()
}

// Draft returns the form content for Input and Loading views.
func (s State) Draft() Draft {
	switch v := s.View.(type) {
	case InputView:
		return v.Draft
	case LoadingView:
		return v.Draft
	default:
		return Draft{Mode: ModePaste}
	}
}

type stateRecord struct {
	Generation uint64           `json:"generation"`
	Kind       ViewKind         `json:"kind"`
	Draft      *Draft           `json:"draft,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  *time.Time       `json:"startedAt,omitempty"`
	Result     *analyses.Result `json:"result,omitempty"`
}

// MarshalJSON flattens the view variant into a kind-tagged record.
func (s State) MarshalJSON() ([]byte, error) {
	rec := stateRecord{Generation: s.Generation, Kind: s.Kind()}
	switch v := s.View.(type) {
	case nil:
		d := Draft{Mode: ModePaste}
		rec.Draft = &d
	case InputView:
		d := v.Draft
		rec.Draft = &d
		rec.Error = v.Error
	case LoadingView:
		d := v.Draft
		started := v.StartedAt.UTC()
		rec.Draft = &d
		rec.StartedAt = &started
	case ResultsView:
		r := v.Result
		rec.Result = &r
	default:
		return nil, fmt.Errorf("unknown view %T", s.View)
	}
	return json.Marshal(rec)
}

// UnmarshalJSON restores a record written by MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	draft := Draft{Mode: ModePaste}
	if rec.Draft != nil {
		draft = *rec.Draft
		draft.Mode = ParseMode(string(draft.Mode))
	}
	switch rec.Kind {
	case KindInput, "":
		s.View = InputView{Draft: draft, Error: rec.Error}
	case KindLoading:
		var started time.Time
		if rec.StartedAt != nil {
			started = *rec.StartedAt
		}
		s.View = LoadingView{Draft: draft, StartedAt: started}
	case KindResults:
		if rec.Result == nil {
			return fmt.Errorf("results view without result")
		}
		s.View = ResultsView{Result: *rec.Result}
	default:
		return fmt.Errorf("unknown view kind %q", rec.Kind)
	}
	s.Generation = rec.Generation
	return nil
}

// CanSubmit reports whether the form holds enough to start an analysis.
func CanSubmit(resumeText, jobDescription string) bool {
	return analyses.ValidateInput(resumeText, jobDescription) == nil
}
