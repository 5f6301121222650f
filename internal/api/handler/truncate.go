package handler

import "unicode/utf8"

// truncateUTF8 按字节上限截断字符串，回退到完整rune边界，
// 避免截断多字节字符产生非法UTF-8写入数据库
func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
