package tools

import (
	"strings"
	"unicode"

	"tess-backend/models"
)

var confirmationWords = map[string]struct{}{
	"ja": {}, "jawel": {}, "jazeker": {}, "nee": {}, "neen": {}, "yes": {}, "no": {}, "yep": {},
	"nope": {}, "correct": {}, "klopt": {}, "ok": {}, "oke": {}, "oké": {}, "okay": {},
	"akkoord": {}, "prima": {}, "goed": {}, "graag": {}, "top": {}, "zeker": {}, "inderdaad": {},
	"precies": {}, "juist": {}, "bedankt": {}, "dankjewel": {}, "dankuwel": {}, "thanks": {},
	"sure": {}, "fine": {}, "right": {}, "incorrect": {}, "fout": {}, "y": {}, "n": {},
}

// fillers may accompany a confirmation word ("ja dat klopt", "ga maar door")
var confirmationFillers = map[string]struct{}{
	"dat": {}, "het": {}, "is": {}, "maar": {}, "door": {}, "ga": {}, "doe": {}, "dit": {},
	"zo": {}, "helemaal": {}, "wel": {}, "hoor": {}, "please": {}, "that": {},
	"heel": {}, "zijn": {}, "ze": {}, "alles": {}, "niet": {},
}

const maxConfirmationWords = 6

// IsConfirmation reports whether text is a bare confirmation or rejection
// rather than a substantive question.
func IsConfirmation(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(words) == 0 || len(words) > maxConfirmationWords {
		return false
	}

	confirmed := false
	for _, w := range words {
		if _, ok := confirmationWords[w]; ok {
			confirmed = true
			continue
		}
		if _, ok := confirmationFillers[w]; !ok {
			return false
		}
	}
	return confirmed
}

// resolveQuestion returns the question an answer is for. A blank or
// confirmation-only query falls back to the most recent substantive user
// message in the transcript.
func resolveQuestion(query string, snapshot *models.Dossier) string {
	query = strings.TrimSpace(query)
	if query != "" && !IsConfirmation(query) {
		return query
	}

	users := snapshot.UserMessages()
	for i := len(users) - 1; i >= 0; i-- {
		msg := strings.TrimSpace(users[i])
		if msg != "" && !IsConfirmation(msg) {
			return msg
		}
	}
	return query
}
