package domain

import (
	"encoding/json"
	"testing"
	"time"
)

const sampleTweetCreateEvent = `{
	"for_user_id": "555000",
	"tweet_create_events": [
		{
			"id_str": "1490000000000000001",
			"text": "truncated text...",
			"full_text": "full tweet body with #GopherDrop and code AB2CD",
			"created_at": "Wed Oct 05 20:11:45 +0000 2022",
			"user": {"id_str": "111222", "screen_name": "alice"},
			"entities": {
				"hashtags": [{"text": "GopherDrop"}],
				"media": [{"type": "video"}]
			},
			"extended_entities": {
				"media": [{"type": "photo"}]
			}
		}
	]
}`

func TestNormalizeFromWebhookPayload(t *testing.T) {
	var envelope ActivityEnvelope
	if err := json.Unmarshal([]byte(sampleTweetCreateEvent), &envelope); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(envelope.TweetCreateEvents) != 1 {
		t.Fatalf("expected one event, got %d", len(envelope.TweetCreateEvents))
	}

	event := envelope.TweetCreateEvents[0].Normalize(envelope.ForUserID)

	if event.TweetID != "1490000000000000001" {
		t.Fatalf("unexpected tweet id %q", event.TweetID)
	}
	if event.AuthorID != "111222" || event.AuthorHandle != "alice" {
		t.Fatalf("unexpected author %q/%q", event.AuthorID, event.AuthorHandle)
	}
	if event.Text != "full tweet body with #GopherDrop and code AB2CD" {
		t.Fatalf("expected full_text to win, got %q", event.Text)
	}
	if len(event.Hashtags) != 1 || event.Hashtags[0] != "GopherDrop" {
		t.Fatalf("unexpected hashtags %v", event.Hashtags)
	}
	if !event.HasImage {
		t.Fatal("expected the extended-entities photo to count as an image")
	}
	if event.IsRetweet {
		t.Fatal("expected a plain tweet, not a retweet")
	}
	if event.BotUserID != "555000" {
		t.Fatalf("unexpected bot user id %q", event.BotUserID)
	}
	want := time.Date(2022, 10, 5, 20, 11, 45, 0, time.UTC)
	if !event.CreatedAt.Equal(want) {
		t.Fatalf("expected created_at %v, got %v", want, event.CreatedAt)
	}
}

func TestNormalizeExtendedTweetSupersedesTruncatedFields(t *testing.T) {
	const payload = `{
		"for_user_id": "555000",
		"tweet_create_events": [
			{
				"id_str": "1490000000000000002",
				"text": "a long tweet that got cut off before the interesting…",
				"created_at": "Wed Oct 05 20:11:45 +0000 2022",
				"user": {"id_str": "111222", "screen_name": "alice"},
				"entities": {"hashtags": []},
				"extended_tweet": {
					"full_text": "a long tweet that got cut off before the interesting part: code AB2CD #GopherDrop",
					"entities": {
						"hashtags": [{"text": "GopherDrop"}]
					},
					"extended_entities": {
						"media": [{"type": "photo"}]
					}
				}
			}
		]
	}`

	var envelope ActivityEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	event := envelope.TweetCreateEvents[0].Normalize(envelope.ForUserID)

	if event.Text != "a long tweet that got cut off before the interesting part: code AB2CD #GopherDrop" {
		t.Fatalf("expected the extended full_text to win, got %q", event.Text)
	}
	if len(event.Hashtags) != 1 || event.Hashtags[0] != "GopherDrop" {
		t.Fatalf("expected the extended hashtags, got %v", event.Hashtags)
	}
	if !event.HasImage {
		t.Fatal("expected the extended-tweet photo to count as an image")
	}
}

func TestNormalizeFallsBackToText(t *testing.T) {
	raw := TweetCreateRaw{IDStr: "t1", Text: "short body"}
	event := raw.Normalize("555000")
	if event.Text != "short body" {
		t.Fatalf("expected text fallback, got %q", event.Text)
	}
	if event.HasImage {
		t.Fatal("expected no image")
	}
	if !event.CreatedAt.IsZero() {
		t.Fatalf("expected zero time for missing created_at, got %v", event.CreatedAt)
	}
}

func TestNormalizeVideoOnlyMediaIsNotAnImage(t *testing.T) {
	raw := TweetCreateRaw{IDStr: "t1", Text: "clip"}
	raw.Entities.Media = append(raw.Entities.Media, struct {
		Type string `json:"type"`
	}{Type: "video"})
	event := raw.Normalize("555000")
	if event.HasImage {
		t.Fatal("a video attachment must not satisfy the image rule")
	}
}

func TestNormalizeRetweetFlag(t *testing.T) {
	raw := TweetCreateRaw{IDStr: "t1", Text: "RT @someone: hi"}
	raw.RetweetedStatus = &struct {
		IDStr string `json:"id_str"`
	}{IDStr: "orig"}
	event := raw.Normalize("555000")
	if !event.IsRetweet {
		t.Fatal("expected the retweet flag to be set")
	}
}

func TestIsSelfTweet(t *testing.T) {
	event := InboundTweetEvent{AuthorID: "555000", BotUserID: "555000"}
	if !event.IsSelfTweet() {
		t.Fatal("expected a self tweet")
	}

	event.AuthorID = "111222"
	if event.IsSelfTweet() {
		t.Fatal("expected a non-self tweet")
	}

	empty := InboundTweetEvent{}
	if empty.IsSelfTweet() {
		t.Fatal("empty author id must never count as self")
	}
}
