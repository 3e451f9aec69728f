package claim

import "github.com/exact3design/soundcard/internal/models"

// LinkView is the public shape of a claimed card's link.
type LinkView struct {
	Type      string `json:"type"`
	YouTubeID string `json:"youtube_id,omitempty"`
	URL       string `json:"url,omitempty"`
}

// View is the projection of a card that may leave the service. It has no
// field for the secret hash, the failure counter, or the lockout.
type View struct {
	Token      string    `json:"token"`
	TemplateID int       `json:"waveform_template_id"`
	Claimed    bool      `json:"claimed"`
	Link       *LinkView `json:"link"`
}

func viewOf(card *models.Card) View {
	v := View{
		Token:      card.Token,
		TemplateID: card.TemplateID,
		Claimed:    card.IsClaimed(),
	}
	if card.LinkType == nil {
		return v
	}
	switch *card.LinkType {
	case models.LinkTypeYouTube:
		if card.YouTubeID != nil {
			v.Link = &LinkView{Type: models.LinkTypeYouTube, YouTubeID: *card.YouTubeID}
		}
	case models.LinkTypeAudio:
		if card.AudioURL != nil {
			v.Link = &LinkView{Type: models.LinkTypeAudio, URL: *card.AudioURL}
		}
	}
	return v
}
