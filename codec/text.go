package codec

import (
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// DecodeText converts body to a UTF-8 string. The charset parameter of
// contentType wins; otherwise valid UTF-8 is returned as is and anything
// else goes through charset detection. Bytes that cannot be decoded are
// replaced with U+FFFD.
func DecodeText(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}

	label := charsetParam(contentType)
	if label == "" {
		if utf8.Valid(body) {
			return string(body)
		}
		label = DetectCharset(body)
	}

	enc, _ := charset.Lookup(label)
	if enc == nil {
		return strings.ToValidUTF8(string(body), "�")
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "�")
	}
	return string(decoded)
}

// DetectCharset guesses the charset of data, defaulting to utf-8.
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// Sniff guesses the media type of body from its content.
func Sniff(body []byte) string {
	return mimetype.Detect(body).String()
}

func charsetParam(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}
