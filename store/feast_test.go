package store

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	feast "github.com/feast-dev/feast/sdk/go"
	"github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/clipfeed/core"
)

type stubFeast struct {
	req *feast.OnlineFeaturesRequest
	err error
}

func (s *stubFeast) GetOnlineFeatures(_ context.Context, req *feast.OnlineFeaturesRequest) (*feast.OnlineFeaturesResponse, error) {
	s.req = req
	return nil, s.err
}

func doubles(v ...float64) *types.Value {
	return &types.Value{Val: &types.Value_DoubleListVal{DoubleListVal: &types.DoubleList{Val: v}}}
}

func floats(v ...float32) *types.Value {
	return &types.Value{Val: &types.Value_FloatListVal{FloatListVal: &types.FloatList{Val: v}}}
}

func strs(v ...string) *types.Value {
	return &types.Value{Val: &types.Value_StringListVal{StringListVal: &types.StringList{Val: v}}}
}

func TestFeastProfileStoreRequest(t *testing.T) {
	tests := []struct {
		kind   core.SourceKind
		entity string
	}{
		{core.SourceUser, "user_id"},
		{core.SourceClass, "class_id"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			stub := &stubFeast{}
			s := NewFeastProfileStore(stub, DefaultFeastConfig())
			if _, err := s.GetProfile(context.Background(), tt.kind, "x1"); !core.IsStoreNotFound(err) {
				t.Fatalf("GetProfile() error = %v, want not found", err)
			}
			if stub.req.Project != "clipfeed" {
				t.Errorf("Project = %q", stub.req.Project)
			}
			want := []string{"profile:embedding", "profile:tags", "profile:tag_weights"}
			if !reflect.DeepEqual(stub.req.Features, want) {
				t.Errorf("Features = %v, want %v", stub.req.Features, want)
			}
			if len(stub.req.Entities) != 1 {
				t.Fatalf("Entities = %v", stub.req.Entities)
			}
			if got := stub.req.Entities[0][tt.entity].GetStringVal(); got != "x1" {
				t.Errorf("entity %s = %q, want x1", tt.entity, got)
			}
		})
	}
}

func TestFeastProfileStoreError(t *testing.T) {
	boom := errors.New("unavailable")
	s := NewFeastProfileStore(&stubFeast{err: boom}, DefaultFeastConfig())
	_, err := s.GetProfile(context.Background(), core.SourceUser, "u1")
	if !errors.Is(err, boom) {
		t.Fatalf("GetProfile() error = %v, want wrapped %v", err, boom)
	}
	if core.IsStoreNotFound(err) {
		t.Error("transport error reported as not found")
	}
}

func TestFeastProfileStoreDecode(t *testing.T) {
	s := NewFeastProfileStore(&stubFeast{}, DefaultFeastConfig())

	tests := []struct {
		name     string
		row      feast.Row
		wantVec  []float64
		wantTags map[string]float64
		wantErr  string
		notFound bool
	}{
		{
			name: "both",
			row: feast.Row{
				"profile:embedding":   doubles(0.5, 1),
				"profile:tags":        strs("Physics", "math"),
				"profile:tag_weights": doubles(2, 1),
			},
			wantVec:  []float64{0.5, 1},
			wantTags: map[string]float64{"physics": 2, "math": 1},
		},
		{
			name:     "float embedding only",
			row:      feast.Row{"profile:embedding": floats(1, 2)},
			wantVec:  []float64{1, 2},
			wantTags: map[string]float64{},
		},
		{
			name: "missing values",
			row: feast.Row{
				"profile:embedding": {},
				"user_id":           feast.StrVal("u1"),
			},
			notFound: true,
		},
		{
			name: "non-finite embedding dropped",
			row: feast.Row{
				"profile:embedding":   doubles(1, math.Inf(1)),
				"profile:tags":        strs("math"),
				"profile:tag_weights": doubles(1),
			},
			wantTags: map[string]float64{"math": 1},
		},
		{
			name: "nan float embedding dropped",
			row: feast.Row{
				"profile:embedding":   floats(float32(math.NaN()), 1),
				"profile:tags":        strs("math", "art"),
				"profile:tag_weights": doubles(2, math.NaN()),
			},
			wantTags: map[string]float64{"math": 2},
		},
		{
			name:     "only non-finite values",
			row:      feast.Row{"profile:embedding": doubles(math.NaN())},
			notFound: true,
		},
		{
			name: "mismatched tag weights",
			row: feast.Row{
				"profile:tags":        strs("a", "b"),
				"profile:tag_weights": doubles(1),
			},
			wantErr: "2 tags but 1 weights",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.decode(core.SourceUser, "u1", tt.row)
			switch {
			case tt.notFound:
				if !core.IsStoreNotFound(err) {
					t.Fatalf("decode() error = %v, want not found", err)
				}
				return
			case tt.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("decode() error = %v, want %q", err, tt.wantErr)
				}
				return
			case err != nil:
				t.Fatalf("decode() error = %v", err)
			}
			if !reflect.DeepEqual(p.Embedding, tt.wantVec) {
				t.Errorf("Embedding = %v, want %v", p.Embedding, tt.wantVec)
			}
			if !reflect.DeepEqual(p.TagPreferences, tt.wantTags) {
				t.Errorf("TagPreferences = %v, want %v", p.TagPreferences, tt.wantTags)
			}
		})
	}
}
