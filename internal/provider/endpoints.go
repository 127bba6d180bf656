package provider

import (
	"sort"
	"strings"
)

// DefaultProvider is used when no provider is configured.
const DefaultProvider = "deepseek"

// fallbackProvider is used for names missing from the table.
const fallbackProvider = "openai"

// endpoints maps provider names to their OpenAI-compatible base URLs.
var endpoints = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"deepseek":   "https://api.deepseek.com",
	"glm":        "https://open.bigmodel.cn/api/paas/v4",
	"minimax":    "https://api.minimax.chat/v1",
	"moonshot":   "https://api.moonshot.cn/v1",
	"dashscope":  "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"doubao":     "https://ark.cn-beijing.volces.com/api/v3",
	"spark":      "https://spark-api-open.xf-yun.com/v1",
	"baichuan":   "https://api.baichuan-ai.com/v1",
	"yi":         "https://api.lingyiwanwu.com/v1",
	"stepfun":    "https://api.stepfun.com/v1",
}

// BaseURL returns the endpoint for provider. A non-empty override wins;
// unknown providers get the openai endpoint.
func BaseURL(provider, override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return strings.TrimRight(o, "/")
	}
	if u, ok := endpoints[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return u
	}
	return endpoints[fallbackProvider]
}

// Known reports whether provider is in the endpoint table.
func Known(provider string) bool {
	_, ok := endpoints[strings.ToLower(strings.TrimSpace(provider))]
	return ok
}

// Names lists the known providers in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(endpoints))
	for n := range endpoints {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
