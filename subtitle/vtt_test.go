package subtitle

import (
	"strings"
	"testing"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:00.000 --> 00:00:02.500
so today we're going to talk

00:00:02.500 --> 00:00:05.000
so today we're going to talk
about subtitles.

2
00:00:05.000 --> 00:00:08.000
<00:00:05.160><c>they</c><00:00:05.440><c> come</c> in many &amp; varied formats!
`

func TestVTTToText(t *testing.T) {
	got := VTTToText(strings.NewReader(sampleVTT))

	want := "so today we're going to talk about subtitles.\nthey come in many & varied formats!"
	if got != want {
		t.Errorf("VTTToText() = %q, want %q", got, want)
	}
}

func TestVTTToTextDropsNoteBlocks(t *testing.T) {
	input := `WEBVTT

NOTE
This file was auto-generated.
Do not edit.

00:00:00.000 --> 00:00:01.000
hello there.
`
	got := VTTToText(strings.NewReader(input))
	if got != "hello there." {
		t.Errorf("VTTToText() = %q, want %q", got, "hello there.")
	}
}

func TestVTTToTextEmptyInput(t *testing.T) {
	if got := VTTToText(strings.NewReader("")); got != "" {
		t.Errorf("VTTToText(empty) = %q, want empty", got)
	}
}

func TestNormalizeCueLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "timing line",
			input: "00:00:01.000 --> 00:00:02.000",
			want:  "",
		},
		{
			name:  "cue index",
			input: "42",
			want:  "",
		},
		{
			name:  "webvtt header",
			input: "WEBVTT - Some Title",
			want:  "",
		},
		{
			name:  "inline timestamps and tags",
			input: "<00:00:01.000><c>hello</c><00:00:01.500><c> world</c>",
			want:  "hello world",
		},
		{
			name:  "html entities",
			input: "fish &amp; chips",
			want:  "fish & chips",
		},
		{
			name:  "bom prefix",
			input: "\ufeffWEBVTT",
			want:  "",
		},
		{
			name:  "plain text",
			input: "  spaced   out  ",
			want:  "spaced out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeCueLine(strings.TrimSpace(tt.input)); got != tt.want {
				t.Errorf("normalizeCueLine(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestVTTToTextNoAdjacentDuplicates(t *testing.T) {
	input := `WEBVTT

00:00:00.000 --> 00:00:01.000
repeat after me

00:00:01.000 --> 00:00:02.000
repeat after me

00:00:02.000 --> 00:00:03.000
repeat after me
`
	got := VTTToText(strings.NewReader(input))
	if strings.Count(got, "repeat after me") != 1 {
		t.Errorf("expected single occurrence, got %q", got)
	}
}
