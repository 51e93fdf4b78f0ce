package mastodon

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mastobridge/mastobridge/internal/bsky"
	"github.com/mastobridge/mastobridge/internal/idmap"
	"github.com/mastobridge/mastobridge/internal/richtext"
)

var errUnknownFeatureKind = errors.New("mastodon: unknown facet feature kind")

// Translator holds the dependencies the pure translation functions
// consult: the ID mapper (for Snowflake assignment) and the clock (for the
// "created_at: current time" fallback, overridable in tests).
type Translator struct {
	mapper  *idmap.Mapper
	nowFunc func() time.Time
}

// NewTranslator constructs a Translator backed by mapper.
func NewTranslator(mapper *idmap.Mapper) *Translator {
	return &Translator{mapper: mapper, nowFunc: time.Now}
}

// Account translates a Bluesky profile into a Mastodon account, per
// spec.md §4.4.
func (t *Translator) Account(ctx context.Context, p bsky.Profile) (Account, error) {
	sf, err := t.mapper.SnowflakeForDID(ctx, p.DID)
	if err != nil {
		return Account{}, err
	}
	if err := t.mapper.PrimeHandle(ctx, p.Handle, p.DID); err != nil {
		return Account{}, err
	}

	displayName := p.DisplayName
	if displayName == "" {
		displayName = p.Handle
	}

	createdAt := p.IndexedAt
	if createdAt == "" {
		createdAt = t.nowFunc().UTC().Format(time.RFC3339)
	} else if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
		createdAt = parsed.UTC().Format(time.RFC3339)
	} else {
		createdAt = t.nowFunc().UTC().Format(time.RFC3339)
	}

	avatar := p.Avatar
	if avatar == "" {
		avatar = gravatarFallback(p.DID)
	}

	return Account{
		ID:             sf.String(),
		Username:       firstLabel(p.Handle),
		Acct:           p.Handle,
		DisplayName:    displayName,
		Note:           richtext.Render([]byte(p.Description), nil),
		Avatar:         avatar,
		AvatarStatic:   avatar,
		Header:         p.Banner,
		HeaderStatic:   p.Banner,
		FollowersCount: p.FollowersCount,
		FollowingCount: p.FollowsCount,
		StatusesCount:  p.PostsCount,
		CreatedAt:      createdAt,
		URL:            "https://bsky.app/profile/" + p.Handle,
		Bot:            false,
		Locked:         false,
		Discoverable:   false,
	}, nil
}

// Status translates a Bluesky post into a Mastodon status, per spec.md
// §4.4.
func (t *Translator) Status(ctx context.Context, post bsky.Post) (Status, error) {
	sf, err := t.mapper.SnowflakeForATURI(ctx, post.URI)
	if err != nil {
		return Status{}, err
	}

	account, err := t.Account(ctx, post.Author)
	if err != nil {
		return Status{}, err
	}

	rtFacets := make([]richtext.Facet, 0, len(post.Facets))
	var mentions []Mention
	var tags []Tag
	for _, f := range post.Facets {
		kind, err := convertFeatureKind(f.Kind)
		if err != nil {
			continue
		}
		rtFacets = append(rtFacets, richtext.Facet{
			ByteStart: f.ByteStart,
			ByteEnd:   f.ByteEnd,
			Feature: richtext.Feature{
				Kind: kind,
				URI:  f.URI,
				DID:  f.DID,
				Tag:  f.Tag,
			},
		})

		text := sliceBytes(post.Text, f.ByteStart, f.ByteEnd)
		switch f.Kind {
		case bsky.FeatureMention:
			if sfID, errPrime := t.mapper.SnowflakeForDID(ctx, f.DID); errPrime == nil {
				mentions = append(mentions, Mention{
					ID:       sfID.String(),
					Username: firstLabel(strings.TrimPrefix(text, "@")),
					Acct:     strings.TrimPrefix(text, "@"),
					URL:      "https://bsky.app/profile/" + strings.TrimPrefix(text, "@"),
				})
			}
		case bsky.FeatureTag:
			tags = append(tags, Tag{
				Name: f.Tag,
				URL:  "https://bsky.app/hashtag/" + f.Tag,
			})
		}
	}

	var inReplyToID *string
	var inReplyToAccountID *string
	if post.ReplyToURI != "" {
		replySF, err := t.mapper.SnowflakeForATURI(ctx, post.ReplyToURI)
		if err != nil {
			return Status{}, err
		}
		id := replySF.String()
		inReplyToID = &id

		if did := idmap.DIDForATURI(post.ReplyToURI); did != "" {
			didSF, err := t.mapper.SnowflakeForDID(ctx, did)
			if err != nil {
				return Status{}, err
			}
			accID := didSF.String()
			inReplyToAccountID = &accID
		}
	}

	media, card, sensitive := translateEmbed(post.Embed)

	var reblog *Status
	switch {
	case post.RepostOf != nil:
		s, err := t.Status(ctx, *post.RepostOf)
		if err != nil {
			return Status{}, err
		}
		reblog = &s
	case post.Embed != nil && post.Embed.Kind == bsky.EmbedRecord && post.Embed.RecordURI != "":
		// Quote post (spec.md §4.4: "if embed is record (quote), model as a
		// reblog reference"). The quoted record itself isn't fetched here,
		// just its mapped id.
		quoteSF, err := t.mapper.SnowflakeForATURI(ctx, post.Embed.RecordURI)
		if err != nil {
			return Status{}, err
		}
		reblog = &Status{ID: quoteSF.String()}
	}

	rkey := post.URI
	if idx := strings.LastIndexByte(post.URI, '/'); idx >= 0 {
		rkey = post.URI[idx+1:]
	}

	return Status{
		ID:                 sf.String(),
		URI:                "https://bsky.app/profile/" + post.Author.Handle + "/post/" + rkey,
		Content:            richtext.Render([]byte(post.Text), rtFacets),
		Account:            account,
		CreatedAt:          post.CreatedAt.UTC().Format(time.RFC3339),
		FavouritesCount:    post.LikeCount,
		ReblogsCount:       post.RepostCount,
		RepliesCount:       post.ReplyCount,
		InReplyToID:        inReplyToID,
		InReplyToAccountID: inReplyToAccountID,
		MediaAttachments:   media,
		Mentions:           mentions,
		Tags:               tags,
		Card:               card,
		Visibility:         "public",
		Sensitive:          sensitive,
		Reblog:             reblog,
	}, nil
}

// Notification translates a Bluesky notification into a Mastodon
// notification. It returns nil, nil when the reason has no Mastodon
// equivalent (spec.md §4.4: "anything else → skip").
func (t *Translator) Notification(ctx context.Context, n bsky.Notification) (*Notification, error) {
	typ, ok := notificationType(n.Reason)
	if !ok {
		return nil, nil
	}

	account, err := t.Account(ctx, n.Author)
	if err != nil {
		return nil, err
	}

	out := &Notification{
		Type:      typ,
		CreatedAt: n.IndexedAt.UTC().Format(time.RFC3339),
		Account:   account,
	}

	// ID: derive from the notification's own URI when present, else from
	// the referenced post; when neither is present, ID is left empty.
	idSource := n.URI
	if idSource == "" && n.Post != nil {
		idSource = n.Post.URI
	}
	if idSource != "" {
		sf, err := t.mapper.SnowflakeForATURI(ctx, idSource)
		if err != nil {
			return nil, err
		}
		out.ID = sf.String()
	}

	if n.Post != nil {
		status, err := t.Status(ctx, *n.Post)
		if err != nil {
			return nil, err
		}
		out.Status = &status
	}

	return out, nil
}

func notificationType(reason bsky.NotificationReason) (string, bool) {
	switch reason {
	case bsky.ReasonLike:
		return "favourite", true
	case bsky.ReasonRepost:
		return "reblog", true
	case bsky.ReasonFollow:
		return "follow", true
	case bsky.ReasonReply, bsky.ReasonMention, bsky.ReasonQuote:
		return "mention", true
	default:
		return "", false
	}
}


func translateEmbed(e *bsky.Embed) ([]MediaAttachment, *Card, bool) {
	if e == nil {
		return nil, nil, false
	}
	switch e.Kind {
	case bsky.EmbedImages:
		media := make([]MediaAttachment, 0, len(e.Images))
		sensitive := false
		for i, img := range e.Images {
			m := MediaAttachment{
				ID:   "embed-" + strconv.Itoa(i),
				Type: "image",
				URL:  img.URL,
			}
			if img.Alt != "" {
				m.Description = img.Alt
			}
			if img.Labeled {
				sensitive = true
			}
			media = append(media, m)
		}
		return media, nil, sensitive
	case bsky.EmbedExternal:
		if e.External == nil {
			return nil, nil, false
		}
		return nil, &Card{
			URL:         e.External.URI,
			Title:       e.External.Title,
			Description: e.External.Description,
			Image:       e.External.ThumbURL,
		}, false
	default:
		return nil, nil, false
	}
}

func convertFeatureKind(k bsky.FeatureKind) (richtext.FeatureKind, error) {
	switch k {
	case bsky.FeatureLink:
		return richtext.FeatureLink, nil
	case bsky.FeatureMention:
		return richtext.FeatureMention, nil
	case bsky.FeatureTag:
		return richtext.FeatureTag, nil
	default:
		return 0, errUnknownFeatureKind
	}
}

func firstLabel(handle string) string {
	if idx := strings.IndexByte(handle, '.'); idx >= 0 {
		return handle[:idx]
	}
	return handle
}

func gravatarFallback(did string) string {
	sum := md5.Sum([]byte(did))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}

func sliceBytes(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return s[start:end]
}

