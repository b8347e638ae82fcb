package models

import (
	"reflect"
	"time"
)

const (
	FieldTweetID  = "tweet_id"
	FieldTime     = "time"
	FieldText     = "text"
	FieldReplies  = "replies"
	FieldRetweets = "retweets"
	FieldLikes    = "likes"
)

// TimeLayout is the layout of the "time" field in a Record (UTC).
const TimeLayout = "2006-01-02 15:04:05"

type Tweet struct {
	ID       string    `json:"tweet_id"`
	Time     time.Time `json:"time"`
	Text     string    `json:"text"`
	Replies  int       `json:"replies"`
	Retweets int       `json:"retweets"`
	Likes    int       `json:"likes"`
}

// Template is the caller-supplied shape every Record is cloned from.
type Template map[string]any

// Record is one scraped tweet laid over a copy of the Template.
type Record map[string]any

func DefaultTemplate() Template {
	return Template{
		FieldTweetID:  nil,
		"is_retweet":  0,
		FieldTime:     nil,
		FieldText:     nil,
		FieldReplies:  nil,
		FieldRetweets: nil,
		FieldLikes:    nil,
	}
}

// Record deep-copies the template and fills in the six scraped fields.
func (t *Tweet) Record(tmpl Template) Record {
	rec := Record(deepCopyMap(tmpl))
	rec[FieldTweetID] = t.ID
	rec[FieldTime] = t.Time.UTC().Format(TimeLayout)
	rec[FieldText] = t.Text
	rec[FieldReplies] = t.Replies
	rec[FieldRetweets] = t.Retweets
	rec[FieldLikes] = t.Likes
	return rec
}

func (r Record) TweetID() string {
	id, _ := r[FieldTweetID].(string)
	return id
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+6)
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case Template:
		return Template(deepCopyMap(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	case nil:
		return nil
	}

	return copyValue(reflect.ValueOf(v)).Interface()
}

// copyValue clones maps, slices, arrays and pointers of any element type,
// keeping their dynamic types. Other values are returned as is.
func copyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(copyValue(v.Elem()))
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(copyValue(v.Elem()))
		return out
	default:
		return v
	}
}
