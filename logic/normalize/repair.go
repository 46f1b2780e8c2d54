package normalize

// repair 是一个感知字符串的单遍扫描器，修复模型输出里最常见的三类错误：
//   - 没有加引号的 key：{summary: "ok"} -> {"summary": "ok"}
//   - 两个值之间漏掉的逗号："a" "b" -> "a", "b"
//   - } 或 ] 之前多余的逗号
//
// 字符串字面量内部的内容原样保留，所以合法 JSON 经过 repair 不会发生变化。
// 这不是完整的 JSON 语法修复，修不好的输入交给严格解析去失败。

type scanState int

const (
	expectValue scanState = iota
	expectKey
	afterKey
	afterValue
)

func repair(s string) string {
	out := make([]byte, 0, len(s)+16)
	var stack []byte
	state := expectValue

	inContainer := func() bool { return len(stack) > 0 }
	inObject := func() bool { return len(stack) > 0 && stack[len(stack)-1] == '{' }
	// 值结束后遇到新的 token，说明中间缺了逗号
	separate := func() {
		if state == afterValue && inContainer() {
			out = append(out, ',')
			if inObject() {
				state = expectKey
			} else {
				state = expectValue
			}
		}
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			separate()
			end := scanString(s, i)
			out = append(out, s[i:end]...)
			if state == expectKey {
				state = afterKey
			} else {
				state = afterValue
			}
			i = end
			continue

		case c == '{' || c == '[':
			separate()
			stack = append(stack, c)
			out = append(out, c)
			if c == '{' {
				state = expectKey
			} else {
				state = expectValue
			}

		case c == '}' || c == ']':
			out = dropTrailingComma(out)
			if inContainer() {
				stack = stack[:len(stack)-1]
			}
			out = append(out, c)
			state = afterValue

		case c == ',':
			out = append(out, c)
			if inObject() {
				state = expectKey
			} else {
				state = expectValue
			}

		case c == ':':
			out = append(out, c)
			state = expectValue

		case isBareStart(c):
			end := i + 1
			for end < len(s) && isBarePart(s[end]) {
				end++
			}
			word := s[i:end]
			if inObject() && (state == expectKey || state == afterValue) && nextNonSpace(s, end) == ':' {
				separate()
				out = append(out, '"')
				out = append(out, word...)
				out = append(out, '"')
				state = afterKey
			} else {
				separate()
				out = append(out, word...)
				state = afterValue
			}
			i = end
			continue

		default:
			out = append(out, c)
		}
		i++
	}
	return string(out)
}

// scanString 返回字符串字面量结束引号之后的位置；没有闭合时返回 len(s)
func scanString(s string, start int) int {
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(s)
}

func dropTrailingComma(out []byte) []byte {
	j := len(out) - 1
	for j >= 0 && isSpace(out[j]) {
		j--
	}
	if j >= 0 && out[j] == ',' {
		return append(out[:j], out[j+1:]...)
	}
	return out
}

func nextNonSpace(s string, from int) byte {
	for j := from; j < len(s); j++ {
		if !isSpace(s[j]) {
			return s[j]
		}
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isBareStart(c byte) bool {
	return c == '_' || c == '$' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isBarePart(c byte) bool {
	return isBareStart(c) || c == '.' || c == '+'
}
