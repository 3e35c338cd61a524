package i18n

import "golang.org/x/text/language"

var builtin = map[language.Tag]map[string]string{
	zhCN: {
		KeyNodeSelect: "🚀 节点选择",
		KeyAutoSelect: "⚡ 自动选择",
		KeyFallBack:   "🐟 漏网之鱼",

		"outboundNames.Ad Block":       "🛑 广告拦截",
		"outboundNames.AI Services":    "💬 AI 服务",
		"outboundNames.Bilibili":       "📺 哔哩哔哩",
		"outboundNames.Youtube":        "📹 油管视频",
		"outboundNames.Google":         "🔍 谷歌服务",
		"outboundNames.Private":        "🏠 私有网络",
		"outboundNames.Location:CN":    "🔒 国内服务",
		"outboundNames.Telegram":       "📲 电报消息",
		"outboundNames.Github":         "🐱 Github",
		"outboundNames.Microsoft":      "Ⓜ️ 微软服务",
		"outboundNames.Apple":          "🍏 苹果服务",
		"outboundNames.Social Media":   "🌐 社交媒体",
		"outboundNames.Streaming":      "🎬 流媒体",
		"outboundNames.Gaming":         "🎮 游戏平台",
		"outboundNames.Education":      "📚 教育资源",
		"outboundNames.Financial":      "💰 金融服务",
		"outboundNames.Cloud Services": "☁️ 云服务",
		"outboundNames.Non-China":      "🌐 非中国",

		"regions.HK": "🇭🇰 香港自动",
		"regions.US": "🇺🇸 美国自动",
		"regions.SG": "🇸🇬 新加坡自动",
		"regions.JP": "🇯🇵 日本自动",
		"regions.GB": "🇬🇧 英国自动",
		"regions.TW": "🇹🇼 台湾自动",
		"regions.KR": "🇰🇷 韩国自动",
	},
	enUS: {
		KeyNodeSelect: "🚀 Node Select",
		KeyAutoSelect: "⚡ Auto Select",
		KeyFallBack:   "🐟 Fall Back",

		"outboundNames.Ad Block":       "🛑 Ad Block",
		"outboundNames.AI Services":    "💬 AI Services",
		"outboundNames.Bilibili":       "📺 Bilibili",
		"outboundNames.Youtube":        "📹 Youtube",
		"outboundNames.Google":         "🔍 Google",
		"outboundNames.Private":        "🏠 Private",
		"outboundNames.Location:CN":    "🔒 Location:CN",
		"outboundNames.Telegram":       "📲 Telegram",
		"outboundNames.Github":         "🐱 Github",
		"outboundNames.Microsoft":      "Ⓜ️ Microsoft",
		"outboundNames.Apple":          "🍏 Apple",
		"outboundNames.Social Media":   "🌐 Social Media",
		"outboundNames.Streaming":      "🎬 Streaming",
		"outboundNames.Gaming":         "🎮 Gaming",
		"outboundNames.Education":      "📚 Education",
		"outboundNames.Financial":      "💰 Financial",
		"outboundNames.Cloud Services": "☁️ Cloud Services",
		"outboundNames.Non-China":      "🌐 Non-China",

		"regions.HK": "🇭🇰 Hong Kong Auto",
		"regions.US": "🇺🇸 United States Auto",
		"regions.SG": "🇸🇬 Singapore Auto",
		"regions.JP": "🇯🇵 Japan Auto",
		"regions.GB": "🇬🇧 United Kingdom Auto",
		"regions.TW": "🇹🇼 Taiwan Auto",
		"regions.KR": "🇰🇷 Korea Auto",
	},
}
