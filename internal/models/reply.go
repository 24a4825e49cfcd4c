package models

import "strings"

// LegacyReplyMarker 是旧客户端把回复写进正文时首行使用的前缀。
const LegacyReplyMarker = "↩︎ 回复 @"

// Quote 是旧式回复头中被引用的消息。
type Quote struct {
	Username string
	Content  string
}

// ParseLegacyReply 将 "↩︎ 回复 @user: quoted\nbody" 拆分为引用和正文。没有回复头时 ok 为 false，body 即原内容。
func ParseLegacyReply(content string) (q Quote, body string, ok bool) {
	first, rest, _ := strings.Cut(content, "\n")
	if !strings.HasPrefix(first, LegacyReplyMarker) {
		return Quote{}, content, false
	}
	header := strings.TrimPrefix(first, LegacyReplyMarker)
	user, quoted, found := strings.Cut(header, ": ")
	if !found {
		user = strings.TrimSuffix(header, ":")
	}
	return Quote{Username: user, Content: quoted}, rest, true
}
