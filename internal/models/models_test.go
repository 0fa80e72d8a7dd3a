package models

import (
	"testing"
	"time"
)

func TestTrack(t *testing.T) {
	t.Run("Artist", func(t *testing.T) {
		tc := []struct {
			name    string
			artists []string
			want    string
		}{
			{name: "single artist", artists: []string{"Daft Punk"}, want: "Daft Punk"},
			{name: "two artists", artists: []string{"Simon", "Garfunkel"}, want: "Simon & Garfunkel"},
			{name: "three artists keep order", artists: []string{"C", "A", "B"}, want: "C & A & B"},
			{name: "repeated name has no trailing separator", artists: []string{"X", "X"}, want: "X & X"},
			{name: "no artists", artists: nil, want: ""},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				got := Track{Artists: tt.artists}.Artist()
				if got != tt.want {
					t.Errorf("Artist() = %q, want %q", got, tt.want)
				}
			})
		}
	})

	t.Run("FileName", func(t *testing.T) {
		track := Track{Title: "Under Pressure", Artists: []string{"Queen", "David Bowie"}}
		if got := FileName(track, ".mp3"); got != "Queen & David Bowie - Under Pressure.mp3" {
			t.Errorf("unexpected filename %q", got)
		}
	})
}

func TestParseFileName(t *testing.T) {
	tc := []struct {
		name       string
		file       string
		wantArtist string
		wantTitle  string
	}{
		{name: "simple", file: "A - Song1.mp3", wantArtist: "A", wantTitle: "Song1"},
		{name: "joined artists", file: "Queen & David Bowie - Under Pressure.mp3", wantArtist: "Queen & David Bowie", wantTitle: "Under Pressure"},
		{name: "dash in title", file: "Artist - Song - Live Version.mp3", wantArtist: "Artist", wantTitle: "Song - Live Version"},
		{name: "dot in title", file: "Artist - Mr. Brightside.mp3", wantArtist: "Artist", wantTitle: "Mr. Brightside"},
		{name: "hyphenated artist", file: "Jay-Z - Empire State.mp3", wantArtist: "Jay-Z", wantTitle: "Empire State"},
		{name: "bare separator", file: "A-Song1.mp3", wantArtist: "A", wantTitle: "Song1"},
		{name: "no separator", file: "untitled.mp3", wantArtist: "untitled", wantTitle: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			artist, title := ParseFileName(tt.file)
			if artist != tt.wantArtist {
				t.Errorf("artist = %q, want %q", artist, tt.wantArtist)
			}
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
		})
	}

	t.Run("Round Trip", func(t *testing.T) {
		track := Track{Title: "Song - Remastered 2011", Artists: []string{"The Band", "Guest"}}
		artist, title := ParseFileName(FileName(track, ".mp3"))
		if artist != track.Artist() || title != track.Title {
			t.Errorf("round trip lost data: %q / %q", artist, title)
		}
	})
}

func TestPassRecord(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Valid", func(t *testing.T) {
		p := NewPassRecord(1, "Focus", PassCounts{Fetched: 3, Failed: 1, Deleted: 2}, start, start.Add(time.Minute), "")
		if err := p.Validate(); err != nil {
			t.Fatalf("expected valid record, got %v", err)
		}
		if p.Duration() != time.Minute {
			t.Errorf("expected 1m duration, got %v", p.Duration())
		}
	})

	t.Run("Missing Playlist", func(t *testing.T) {
		p := NewPassRecord(1, "", PassCounts{}, start, start, "")
		if err := p.Validate(); err == nil {
			t.Error("expected error for missing playlist")
		}
	})

	t.Run("Failed Exceeds Fetched", func(t *testing.T) {
		p := NewPassRecord(1, "Focus", PassCounts{Fetched: 1, Failed: 2}, start, start, "")
		if err := p.Validate(); err == nil {
			t.Error("expected error when failed exceeds fetched")
		}
	})

	t.Run("Finished Before Start", func(t *testing.T) {
		p := NewPassRecord(1, "Focus", PassCounts{}, start, start.Add(-time.Second), "")
		if err := p.Validate(); err == nil {
			t.Error("expected error for inverted timestamps")
		}
	})

	t.Run("Events", func(t *testing.T) {
		p := NewPassRecord(1, "Focus", PassCounts{Fetched: 1}, start, start, "")
		p.AddEvent(EventFetched, "A - One.mp3", "")
		p.AddEvent(EventDeleted, "B - Two.mp3", "")

		events := p.Events()
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Kind != EventFetched || events[1].Name != "B - Two.mp3" {
			t.Errorf("unexpected events %+v", events)
		}
	})
}
