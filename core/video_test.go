package core

import "testing"

func TestHasHashtag(t *testing.T) {
	v := &Video{ID: "v1", Hashtags: []string{" Physics ", "waves", ""}}

	tests := []struct {
		tag  string
		want bool
	}{
		{"physics", true},
		{"PHYSICS", true},
		{"  physics\t", true},
		{"waves", true},
		{"wave", false},
		// 空白标签不匹配，即使视频带有空 hashtag
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := v.HasHashtag(tt.tag); got != tt.want {
			t.Errorf("HasHashtag(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := map[string]string{
		"Physics":     "physics",
		"  Space\t":   "space",
		"":            "",
		" \n ":        "",
		"Quantum Lab": "quantum lab",
	}
	for in, want := range tests {
		if got := NormalizeTag(in); got != want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", in, got, want)
		}
	}
}
