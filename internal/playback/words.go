package playback

import "unicode"

// splitWords splits text on whitespace. Each word keeps the whitespace that
// preceded it and the last word keeps any trailing whitespace, so joining the
// words reproduces text exactly.
func splitWords(text string) []string {
	var words []string
	start := 0
	inWord := false

	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				words = append(words, text[start:i])
				start = i
				inWord = false
			}
			continue
		}
		inWord = true
	}

	if inWord {
		words = append(words, text[start:])
	} else if len(words) > 0 {
		words[len(words)-1] += text[start:]
	}

	return words
}
