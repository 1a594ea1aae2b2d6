// Package profile defines the developer-profile document shapes produced
// by the pipeline stages and composes read responses from them.
package profile

import "encoding/json"

// ArtifactKind selects which stage output a read targets.
type ArtifactKind string

// The two readable artifacts, in pipeline order.
const (
	ArtifactFiltered   ArtifactKind = "filtered"
	ArtifactTranslated ArtifactKind = "translated"
)

// Filename returns the artifact file name inside a subject's working
// directory.
func (k ArtifactKind) Filename() string {
	return string(k) + ".json"
}

// ProfileInfo is the profile header common to both artifacts.
type ProfileInfo struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	Bio       string `json:"bio"`
}

// UnmarshalJSON accepts both the translated-artifact keys (name,
// avatarUrl) and the legacy filtered-artifact keys (nameUser, avatar).
func (p *ProfileInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      string `json:"name"`
		NameUser  string `json:"nameUser"`
		Username  string `json:"username"`
		AvatarURL string `json:"avatarUrl"`
		Avatar    string `json:"avatar"`
		Bio       string `json:"bio"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Name = raw.Name
	if p.Name == "" {
		p.Name = raw.NameUser
	}
	p.Username = raw.Username
	p.AvatarURL = raw.AvatarURL
	if p.AvatarURL == "" {
		p.AvatarURL = raw.Avatar
	}
	p.Bio = raw.Bio
	return nil
}

// Stats is the home-page stats block.
type Stats struct {
	TotalProjects  int     `json:"totalProjects"`
	TotalRating    float64 `json:"totalRating"`
	TotalLanguages int     `json:"totalLanguages"`
}

// RadarSkill is one scored axis of the skills radar chart.
type RadarSkill struct {
	Subject string  `json:"subject"`
	Score   float64 `json:"score"`
}

// Skills holds the radar-style scored skill list.
type Skills struct {
	Radar []RadarSkill `json:"radar"`
}

// Language is one entry of the language usage breakdown.
type Language struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// TopProject is a starred repository highlight.
type TopProject struct {
	Name          string `json:"nameTop"`
	Description   string `json:"descriptionTop"`
	Language      string `json:"languageTop"`
	LanguageColor string `json:"languageColorTop,omitempty"`
	Stars         int    `json:"starsTop"`
	Forks         int    `json:"forksTop"`
}

// NewProject is a recently created repository.
type NewProject struct {
	Name          string `json:"nameNew"`
	Description   string `json:"descriptionNew"`
	Language      string `json:"languageNew"`
	LanguageColor string `json:"languageColorNew,omitempty"`
	CreatedAt     string `json:"createdAtNew"`
	Commits       int    `json:"commitsNew"`
}

// Projects groups repository highlights from the filtered artifact.
type Projects struct {
	Top []TopProject `json:"top"`
	New []NewProject `json:"new"`
}

// RecentWork is one row of the recent-activity list.
type RecentWork struct {
	Name        string `json:"nameRecent"`
	Project     string `json:"projectRecent"`
	Status      string `json:"statusRecent"`
	Priority    string `json:"priorityRecent"`
	LastUpdated string `json:"lastUpdatedRecent"`
}

// ComposedProfile is the schema-stable response document. Whichever
// artifact backs it, every section is present: missing ones are defaulted
// to empty instances so clients never branch on absent keys.
type ComposedProfile struct {
	Profile     ProfileInfo  `json:"profile"`
	Stats       Stats        `json:"statsHome"`
	Skills      Skills       `json:"skills"`
	Languages   []Language   `json:"languages"`
	Frameworks  []string     `json:"frameworks"`
	Libraries   []string     `json:"libraries"`
	Projects    Projects     `json:"projects"`
	RecentWorks []RecentWork `json:"recentWorks"`
}

// fillDefaults guarantees every section is non-nil.
func (c *ComposedProfile) fillDefaults() {
	if c.Skills.Radar == nil {
		c.Skills.Radar = []RadarSkill{}
	}
	if c.Languages == nil {
		c.Languages = []Language{}
	}
	if c.Frameworks == nil {
		c.Frameworks = []string{}
	}
	if c.Libraries == nil {
		c.Libraries = []string{}
	}
	if c.Projects.Top == nil {
		c.Projects.Top = []TopProject{}
	}
	if c.Projects.New == nil {
		c.Projects.New = []NewProject{}
	}
	if c.RecentWorks == nil {
		c.RecentWorks = []RecentWork{}
	}
}
