package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSONObject 从模型输出中截取第一个 "{" 到最后一个 "}" 之间的内容并解析。
// 兼容 ```json 代码块以及前后附带说明文字的输出。
func DecodeJSONObject(content string, out any) error {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("missing json object")
	}

	if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err != nil {
		return fmt.Errorf("invalid json object: %w", err)
	}
	return nil
}
