package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
)

// Fingerprint 计算通知去重指纹：applicationID + message + 规范化 context
// context 序列化时按 key 排序，保证同一内容不同 key 顺序得到同一指纹
func Fingerprint(applicationID int64, message string, context map[string]interface{}) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(applicationID, 10)))
	h.Write([]byte{0})
	h.Write([]byte(message))
	h.Write([]byte{0})
	h.Write([]byte(CanonicalJSON(context)))

	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalJSON 生成 key 有序的 JSON 文本，嵌套 map 递归排序
func CanonicalJSON(value interface{}) string {
	var buf []byte
	buf = appendCanonical(buf, value)
	return string(buf)
}

func appendCanonical(buf []byte, value interface{}) []byte {
	switch v := value.(type) {
	case nil:
		return append(buf, "null"...)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = appendCanonical(buf, v[k])
		}
		return append(buf, '}')
	case []interface{}:
		buf = append(buf, '[')
		for i, item := range v {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, item)
		}
		return append(buf, ']')
	default:
		// 标量直接交给标准库，数字统一为 json 表示
		b, err := json.Marshal(v)
		if err != nil {
			b, _ = json.Marshal(nil)
		}
		return append(buf, b...)
	}
}
