// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
)

// Email is a rendered message ready to be queued.
type Email struct {
	To       string `json:"to"`
	Locale   string `json:"locale"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body"`
}

// DrawAssignedData holds data for the "you drew someone" email. Names must
// already be plain text.
type DrawAssignedData struct {
	SiteName     string
	GiverName    string
	ReceiverName string
	GroupName    string
	Link         string
}

type drawAssignedStrings struct {
	Subject  string // site, group
	Greeting string // giver
	Body     string // group, receiver
	Action   string
	Secret   string
}

// Supported lists the locales with translated copy. The first is the
// fallback.
var Supported = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
}

var matcher = language.NewMatcher(Supported)

var drawAssignedCopy = map[language.Tag]drawAssignedStrings{
	language.English: {
		Subject:  "%s: your Secret Santa draw for %s",
		Greeting: "Hi %s,",
		Body:     "The draw for %s is done. You are giving a gift to %s.",
		Action:   "View your assignment",
		Secret:   "Keep it secret!",
	},
	language.Spanish: {
		Subject:  "%s: tu sorteo de Amigo Invisible en %s",
		Greeting: "Hola %s:",
		Body:     "El sorteo de %s ya se hizo. Vas a hacerle un regalo a %s.",
		Action:   "Ver tu asignación",
		Secret:   "¡No se lo digas a nadie!",
	},
	language.French: {
		Subject:  "%s : votre tirage Père Noël secret pour %s",
		Greeting: "Bonjour %s,",
		Body:     "Le tirage de %s a eu lieu. Vous offrez un cadeau à %s.",
		Action:   "Voir votre tirage",
		Secret:   "Gardez le secret !",
	},
	language.German: {
		Subject:  "%s: deine Wichtel-Auslosung für %s",
		Greeting: "Hallo %s,",
		Body:     "Die Auslosung für %s ist erfolgt. Du beschenkst %s.",
		Action:   "Zuteilung ansehen",
		Secret:   "Verrate es niemandem!",
	},
}

// MatchLocale picks the best supported locale for a BCP 47 preference
// such as "es-MX". Unparseable or empty input falls back to English.
func MatchLocale(pref string) language.Tag {
	if pref == "" {
		return Supported[0]
	}
	tags, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(tags) == 0 {
		return Supported[0]
	}
	_, idx, _ := matcher.Match(tags...)
	return Supported[idx]
}

// BuildDrawAssignedEmail renders the giver's notification in the best
// matching locale.
func BuildDrawAssignedEmail(data DrawAssignedData, locale string) Email {
	tag := MatchLocale(locale)
	c := drawAssignedCopy[tag]
	return Email{
		To:       "", // Set by caller
		Locale:   tag.String(),
		Subject:  fmt.Sprintf(c.Subject, data.SiteName, data.GroupName),
		TextBody: buildDrawAssignedText(data, c),
		HTMLBody: buildDrawAssignedHTML(data, c),
	}
}

func buildDrawAssignedText(data DrawAssignedData, c drawAssignedStrings) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf(c.Greeting, data.GiverName) + "\n\n")
	buf.WriteString(fmt.Sprintf(c.Body, data.GroupName, data.ReceiverName) + "\n\n")
	if data.Link != "" {
		buf.WriteString(c.Action + ":\n")
		buf.WriteString(data.Link + "\n\n")
	}
	buf.WriteString(c.Secret + "\n")
	return buf.String()
}

var drawAssignedTmpl = template.Must(template.New("draw_assigned").Parse(drawAssignedHTMLTemplate))

func buildDrawAssignedHTML(data DrawAssignedData, c drawAssignedStrings) string {
	var buf bytes.Buffer
	_ = drawAssignedTmpl.Execute(&buf, map[string]any{
		"SiteName": data.SiteName,
		"Greeting": fmt.Sprintf(c.Greeting, data.GiverName),
		"Body":     fmt.Sprintf(c.Body, data.GroupName, data.ReceiverName),
		"Action":   c.Action,
		"Secret":   c.Secret,
		"Link":     data.Link,
	})
	return buf.String()
}

const drawAssignedHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 16px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #b91c1c;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151;">{{.Greeting}}</p>
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">{{.Body}}</p>
              {{if .Link}}
              <p style="margin: 0 0 24px; text-align: center;">
                <a href="{{.Link}}" style="display: inline-block; padding: 12px 24px; background-color: #b91c1c; color: #ffffff; text-decoration: none; border-radius: 6px;">{{.Action}}</a>
              </p>
              {{end}}
              <p style="margin: 0; font-size: 14px; color: #6b7280; text-align: center;">{{.Secret}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
