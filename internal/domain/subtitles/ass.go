// Package subtitles packs a window's tokens into caption lines and
// emits an ASS subtitle track for burning into the rendered clip.
// Generalizes the teacher's RenderTikTokASS/packWords (word-karaoke ASS
// emission, char/word budget packing) to spec §4.H's 42-chars-or-2.5s
// caption rule and speaker-label inheritance, dropping the karaoke
// per-word timing tags the teacher used (not part of spec §4.H/§4.I's
// "readable style (white fill, black outline, bottom-safe area)"
// contract) in favor of a single style per event.
package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/clipcut/internal/types"
)

const (
	charBudget = 42
	timeBudget = 2500 * time.Millisecond
)

type clipToken struct {
	Start        time.Duration
	End          time.Duration
	Text         string
	SpeakerLabel string
}

// PackEvents groups tokens within [start,end) into caption lines of at
// most charBudget characters or timeBudget duration, whichever triggers
// first, never splitting a token. Event times are clip-local offsets
// (spec §4.H). Each event inherits the speaker label of its first token.
func PackEvents(transcript types.Transcript, start, end time.Duration) []types.SubtitleEvent {
	words := tokensInRange(transcript, start, end)
	if len(words) == 0 {
		return nil
	}

	var events []types.SubtitleEvent
	cur := types.SubtitleEvent{Start: words[0].Start, SpeakerLabel: words[0].SpeakerLabel}
	var parts []string
	curLen := 0

	flush := func(lastEnd time.Duration) {
		if len(parts) == 0 {
			return
		}
		cur.End = lastEnd
		cur.Text = strings.Join(parts, " ")
		events = append(events, cur)
	}

	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		crossesTime := len(parts) > 0 && w.End-cur.Start > timeBudget

		if len(parts) > 0 && (nextLen > charBudget || crossesTime) {
			flush(words[i-1].End)
			cur = types.SubtitleEvent{Start: w.Start, SpeakerLabel: w.SpeakerLabel}
			parts = nil
			curLen = 0
		}

		parts = append(parts, w.Text)
		if curLen > 0 {
			curLen++
		}
		curLen += wl

		if i == len(words)-1 {
			flush(w.End)
		}
	}
	return events
}

// tokensInRange returns tokens overlapping [start,end), with times
// normalized to clip-local offsets and text sanitized for ASS.
func tokensInRange(transcript types.Transcript, start, end time.Duration) []clipToken {
	var out []clipToken
	for _, t := range transcript.Tokens {
		if t.End <= start || t.Start >= end {
			continue
		}
		ts, te := t.Start, t.End
		if ts < start {
			ts = start
		}
		if te > end {
			te = end
		}
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		out = append(out, clipToken{Start: ts - start, End: te - start, Text: sanitizeASS(text), SpeakerLabel: t.SpeakerLabel})
	}
	return out
}

// RenderASS emits an ASS subtitle document for the given events, with a
// readable bottom-safe style (white fill, black outline), matching the
// teacher's assHeader/assTime/sanitizeASS helpers.
func RenderASS(events []types.SubtitleEvent) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, e := range events {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(e.Start))
		b.WriteString(",")
		b.WriteString(assTime(e.End))
		b.WriteString(",Caption,,0,0,0,,")
		b.WriteString(sanitizeASS(e.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, Inter, 64, &H00FFFFFF, &H000000FF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,4,1,2, 60,60,140,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
