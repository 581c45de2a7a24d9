package analysis

import (
	"errors"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Event
		wantErr error
	}{
		{
			name: "step update",
			data: `{"type":"step_update","step_id":"ml","status":"running"}`,
			want: StepUpdateEvent{StepID: "ml", Status: StatusRunning},
		},
		{
			name: "step update with detail",
			data: `{"type":"step_update","step_id":"frequency","status":"done","detail":"Frequency anomaly: 41.20%"}`,
			want: StepUpdateEvent{StepID: "frequency", Status: StatusDone, Detail: "Frequency anomaly: 41.20%"},
		},
		{
			name: "result",
			data: `{"type":"result","data":{"verdict":"LIKELY REAL","confidence":92,"ml_score":88,"frequency_score":81,"summary":"ok","reverse_search":[],"agent_reasoning":["step1"]}}`,
			want: ResultEvent{Result: Result{
				Verdict:        VerdictReal,
				Confidence:     92,
				MLScore:        88,
				FrequencyScore: 81,
				Summary:        "ok",
				ReverseSearch:  []ProvenanceRecord{},
				AgentReasoning: []string{"step1"},
			}},
		},
		{
			name:    "malformed json",
			data:    `{"type":"step_update",`,
			wantErr: ErrMalformedFrame,
		},
		{
			name:    "result with unparseable payload",
			data:    `{"type":"result","data":"not-an-object"}`,
			wantErr: ErrMalformedFrame,
		},
		{
			name:    "step update with unknown status",
			data:    `{"type":"step_update","step_id":"ml","status":"finished"}`,
			wantErr: ErrMalformedFrame,
		},
		{
			name:    "step update with missing status",
			data:    `{"type":"step_update","step_id":"ml"}`,
			wantErr: ErrMalformedFrame,
		},
		{
			name:    "unknown discriminant",
			data:    `{"type":"error","message":"pipeline blew up"}`,
			wantErr: ErrUnknownEvent,
		},
		{
			name:    "missing discriminant",
			data:    `{"step_id":"ml","status":"done"}`,
			wantErr: ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFrame([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}

			switch want := tt.want.(type) {
			case StepUpdateEvent:
				if got != want {
					t.Errorf("DecodeFrame() = %+v, want %+v", got, want)
				}
			case ResultEvent:
				res, ok := got.(ResultEvent)
				if !ok {
					t.Fatalf("DecodeFrame() = %T, want ResultEvent", got)
				}
				if res.Result.Verdict != want.Result.Verdict ||
					res.Result.Confidence != want.Result.Confidence ||
					len(res.Result.AgentReasoning) != len(want.Result.AgentReasoning) {
					t.Errorf("result = %+v, want %+v", res.Result, want.Result)
				}
			}
		})
	}
}

func TestStageStatus_Valid(t *testing.T) {
	for _, s := range []StageStatus{StatusPending, StatusRunning, StatusDone, StatusError} {
		if !s.Valid() {
			t.Errorf("%q reported invalid", s)
		}
	}
	if StageStatus("finished").Valid() {
		t.Error("unknown status reported valid")
	}
}
