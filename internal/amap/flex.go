package amap

import (
	"bytes"
	"encoding/json"
	"strings"
)

// flexString：高德在字段为空时常返回 [] 而非 ""，数值字段偶尔不带引号
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case '[':
		var l flexList
		if err := l.UnmarshalJSON(b); err != nil {
			return err
		}
		*f = flexString(strings.Join(l, ""))
	default:
		*f = flexString(b)
	}
	return nil
}

// flexList：字符串或字符串数组；非字符串元素被忽略
type flexList []string

func (f *flexList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = nil
		} else {
			*f = flexList{s}
		}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := flexList(nil)
	for _, r := range raw {
		var s string
		if json.Unmarshal(r, &s) == nil && s != "" {
			out = append(out, s)
		}
	}
	*f = out
	return nil
}
