package reddit

import (
	"bytes"
	"encoding/json"
)

// Post is the subset of a Reddit link object the extractor reads.
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Stickied    bool    `json:"stickied"`
}

// Comment is a t1 object. Replies is either an empty string or a listing.
type Comment struct {
	Author  string          `json:"author"`
	Body    string          `json:"body"`
	Score   int             `json:"score"`
	Replies json.RawMessage `json:"replies"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
		After    string  `json:"after"`
	} `json:"data"`
}

func (l listing) posts() []Post {
	out := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p Post
		if err := json.Unmarshal(child.Data, &p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// comments skips "more" placeholders and anything that does not decode.
func (l listing) comments() []Comment {
	out := make([]Comment, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var c Comment
		if err := json.Unmarshal(child.Data, &c); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// replies decodes the nested listing, if any.
func (c Comment) replies() []Comment {
	raw := bytes.TrimSpace(c.Replies)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil
	}
	return l.comments()
}
