package util

import "strings"

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "\u200b"
)

// ApplyKakaoSeeMorePadding는 제로폭 문자를 채워 text를 카카오톡 '전체보기' 뒤로 접는다.
// instruction은 접히기 전에 보이는 첫 줄이다.
func ApplyKakaoSeeMorePadding(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	message := strings.TrimSpace(instruction)

	var builder strings.Builder
	builder.Grow(len(text) + KakaoSeeMorePadding*len(KakaoZeroWidthSpace) + len(message) + 1)
	builder.WriteString(message)
	builder.WriteString(strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		builder.WriteByte('\n')
	}
	builder.WriteString(text)
	return builder.String()
}

// CollapseList는 header 아래 목록을 붙인다. 목록이 maxInline 줄을 넘으면
// header만 보이고 나머지는 '전체보기' 뒤로 접힌다.
func CollapseList(header string, lines []string, maxInline int) string {
	body := strings.Join(lines, "\n")
	if maxInline <= 0 || len(lines) <= maxInline {
		if body == "" {
			return header
		}
		return header + "\n" + body
	}
	return ApplyKakaoSeeMorePadding(body, header)
}
