/**
 * @description
 * This file defines the inbound side of the pipeline: the Account Activity
 * webhook envelope as Twitter delivers it, and the normalized tweet event
 * the router actually processes. The envelope structs only cover the fields
 * the pipeline parses; everything else in the payload is ignored.
 */

package domain

import "time"

// ActivityEnvelope is the raw Account Activity webhook payload. Twitter
// delivers at-least-once, so the same envelope may arrive more than once.
type ActivityEnvelope struct {
	ForUserID         string           `json:"for_user_id"`
	TweetCreateEvents []TweetCreateRaw `json:"tweet_create_events"`
}

// TweetCreateRaw mirrors the v1.1 tweet object subset the router needs.
type TweetCreateRaw struct {
	IDStr     string `json:"id_str"`
	Text      string `json:"text"`
	FullText  string `json:"full_text"`
	CreatedAt string `json:"created_at"`
	User      struct {
		IDStr      string `json:"id_str"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	Entities struct {
		Hashtags []struct {
			Text string `json:"text"`
		} `json:"hashtags"`
		Media []struct {
			Type string `json:"type"`
		} `json:"media"`
	} `json:"entities"`
	ExtendedEntities struct {
		Media []struct {
			Type string `json:"type"`
		} `json:"media"`
	} `json:"extended_entities"`
	ExtendedTweet *struct {
		FullText string `json:"full_text"`
		Entities struct {
			Hashtags []struct {
				Text string `json:"text"`
			} `json:"hashtags"`
			Media []struct {
				Type string `json:"type"`
			} `json:"media"`
		} `json:"entities"`
		ExtendedEntities struct {
			Media []struct {
				Type string `json:"type"`
			} `json:"media"`
		} `json:"extended_entities"`
	} `json:"extended_tweet"`
	RetweetedStatus *struct {
		IDStr string `json:"id_str"`
	} `json:"retweeted_status"`
}

// InboundTweetEvent is the normalized, ephemeral value the pipeline runs
// on. It is consumed once per run and never persisted as-is.
type InboundTweetEvent struct {
	TweetID      string
	AuthorID     string
	AuthorHandle string
	Text         string
	CreatedAt    time.Time
	Hashtags     []string
	HasImage     bool
	Codes        []string
	BotUserID    string
	IsRetweet    bool
}

// twitterCreatedAtLayout is the legacy timestamp format used by the v1.1
// tweet object ("Wed Oct 05 20:11:45 +0000 2022").
const twitterCreatedAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Normalize flattens a raw tweet-create event into an InboundTweetEvent.
// Tweets over 140 characters arrive truncated, with the full body and the
// complete entity set nested under extended_tweet; when that block is
// present it supersedes the top-level text, full_text, and entities.
func (t TweetCreateRaw) Normalize(forUserID string) InboundTweetEvent {
	text := t.Text
	if t.FullText != "" {
		text = t.FullText
	}

	rawTags := t.Entities.Hashtags
	primaryMedia := t.ExtendedEntities.Media
	fallbackMedia := t.Entities.Media
	if ext := t.ExtendedTweet; ext != nil {
		if ext.FullText != "" {
			text = ext.FullText
		}
		rawTags = ext.Entities.Hashtags
		primaryMedia = ext.ExtendedEntities.Media
		fallbackMedia = ext.Entities.Media
	}

	tags := make([]string, 0, len(rawTags))
	for _, h := range rawTags {
		tags = append(tags, h.Text)
	}

	hasImage := false
	for _, m := range primaryMedia {
		if m.Type == "photo" {
			hasImage = true
		}
	}
	if !hasImage {
		for _, m := range fallbackMedia {
			if m.Type == "photo" {
				hasImage = true
			}
		}
	}

	createdAt, err := time.Parse(twitterCreatedAtLayout, t.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}

	return InboundTweetEvent{
		TweetID:      t.IDStr,
		AuthorID:     t.User.IDStr,
		AuthorHandle: t.User.ScreenName,
		Text:         text,
		CreatedAt:    createdAt,
		Hashtags:     tags,
		HasImage:     hasImage,
		BotUserID:    forUserID,
		IsRetweet:    t.RetweetedStatus != nil,
	}
}

// IsSelfTweet reports whether the event was authored by the bot account it
// was delivered for. Self tweets are skipped, never replied to.
func (e InboundTweetEvent) IsSelfTweet() bool {
	return e.AuthorID != "" && e.AuthorID == e.BotUserID
}
