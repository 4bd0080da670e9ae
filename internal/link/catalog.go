package link

import (
	"net/url"
	"strings"
)

var catalog = []Integration{
	{Name: "Gmail", Category: "Email", Logo: "https://upload.wikimedia.org/wikipedia/commons/7/7e/Gmail_icon_%282020%29.svg", BrandColor: "#FF3D57"},
	{Name: "Google Calendar", Category: "Productivity", Logo: "https://ssl.gstatic.com/calendar/images/dynamiclogo_2020q4/calendar_31_2x.png", BrandColor: "#4285F4"},
	{Name: "Google Drive", Category: "Storage", Logo: "https://ssl.gstatic.com/images/branding/product/1x/drive_2020q4_32dp.png", BrandColor: "#4285F4"},
	{Name: "Spotify", Category: "Entertainment", Logo: "/assets/spotify_logo.png", BrandColor: "#1DB954"},
	{Name: "Figma", Category: "Design", Logo: "https://upload.wikimedia.org/wikipedia/commons/3/33/Figma-logo.svg", BrandColor: "#F24E1E"},
	{Name: "Google", Category: "Productivity", Logo: "https://logo.clearbit.com/google.com", BrandColor: "#4285F4"},
	{Name: "Instacart", Category: "Shopping", Logo: "/assets/instacart_logo.svg", BrandColor: "#43B02A"},
	{Name: "Jira", Category: "Project Management", Logo: "https://logo.clearbit.com/atlassian.com", BrandColor: "#0052CC"},
	{Name: "Linear", Category: "Project Management", Logo: "https://logo.clearbit.com/linear.app", BrandColor: "#5E6AD2"},
	{Name: "Notion", Category: "Productivity", Logo: "/assets/notion_logo.svg", BrandColor: "#000000"},
	{Name: "Slack", Category: "Communication", Logo: "https://logo.clearbit.com/slack.com", BrandColor: "#4A154B"},
	{Name: "Amazon", Category: "Shopping", Logo: "https://logo.clearbit.com/amazon.com", BrandColor: "#FF9900"},
	{Name: "Brex", Category: "Finance", Logo: "https://logo.clearbit.com/brex.com", BrandColor: "#FF6B6B"},
	{Name: "Canva", Category: "Design", Logo: "https://logo.clearbit.com/canva.com", BrandColor: "#00C4CC"},
	{Name: "Capital One", Category: "Finance", Logo: "https://logo.clearbit.com/capitalone.com", BrandColor: "#004879"},
	{Name: "Coinbase", Category: "Finance", Logo: "https://logo.clearbit.com/coinbase.com", BrandColor: "#0052FF"},
	{Name: "Delta", Category: "Travel", Logo: "https://logo.clearbit.com/delta.com", BrandColor: "#CE1126"},
	{Name: "Dropbox", Category: "Storage", Logo: "https://logo.clearbit.com/dropbox.com", BrandColor: "#0061FF"},
	{Name: "Google Maps", Category: "Navigation", Logo: "https://upload.wikimedia.org/wikipedia/commons/b/bd/Google_Maps_Logo_2020.svg", BrandColor: "#4285F4"},
	{Name: "GitHub", Category: "Development", Logo: "https://logo.clearbit.com/github.com", BrandColor: "#181717"},
	{Name: "GitLab", Category: "Development", Logo: "https://logo.clearbit.com/gitlab.com", BrandColor: "#FC6D26"},
	{Name: "LinkedIn", Category: "Professional", Logo: "https://logo.clearbit.com/linkedin.com", BrandColor: "#0A66C2"},
	{Name: "Lyft", Category: "Transportation", Logo: "https://logo.clearbit.com/lyft.com", BrandColor: "#FF00BF"},
	{Name: "Microsoft Outlook", Category: "Email", Logo: "https://upload.wikimedia.org/wikipedia/commons/d/df/Microsoft_Office_Outlook_%282018%E2%80%93present%29.svg", BrandColor: "#0078D4"},
}

// Catalog returns a copy of the static integration catalog.
func Catalog() []Integration {
	return append([]Integration(nil), catalog...)
}

// Lookup finds a catalog entry by name, ignoring case.
func Lookup(name string) (Integration, bool) {
	for _, it := range catalog {
		if strings.EqualFold(it.Name, strings.TrimSpace(name)) {
			return it, true
		}
	}
	return Integration{}, false
}

// FallbackLogo is the generated avatar shown when a logo fails to load.
func FallbackLogo(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random&color=fff&size=64"
}

// List merges the catalog with the connected service names and keeps the
// entries whose name contains query. Both comparisons ignore case.
func List(connected []string, query string) []Integration {
	linked := make(map[string]bool, len(connected))
	for _, name := range connected {
		linked[strings.ToLower(strings.TrimSpace(name))] = true
	}
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]Integration, 0, len(catalog))
	for _, it := range catalog {
		if query != "" && !strings.Contains(strings.ToLower(it.Name), query) {
			continue
		}
		it.Connected = linked[strings.ToLower(it.Name)]
		out = append(out, it)
	}
	return out
}
