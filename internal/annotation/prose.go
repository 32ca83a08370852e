package annotation

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/kljensen/snowball/english"
	"github.com/reiver/go-porterstemmer"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

// ProseAnnotator annotates English text in-process with prose's segmenter,
// averaged-perceptron tagger and NER model. Lemmas are approximated by an
// English stemmer.
type ProseAnnotator struct {
	stem   func(word string) string
	logger *slog.Logger
}

// NewProseAnnotator returns an annotator using the named stemmer, "porter"
// or "snowball". Anything else falls back to snowball.
func NewProseAnnotator(stemmer string) *ProseAnnotator {
	stem := snowballStem
	if stemmer == "porter" {
		stem = porterStem
	}
	return &ProseAnnotator{
		stem:   stem,
		logger: slog.Default().With("component", "prose-annotator", "stemmer", stemmer),
	}
}

func snowballStem(word string) string {
	return english.Stem(word, false)
}

func porterStem(word string) string {
	return porterstemmer.StemString(word)
}

// Annotate segments text into sentences and tags each one separately so
// sentence boundaries are preserved in the Document.
func (a *ProseAnnotator) Annotate(ctx context.Context, text, language string) (Document, error) {
	if language != "" && !strings.HasPrefix(strings.ToLower(language), "en") {
		return Document{}, apperrors.Newf(apperrors.ErrAnnotation, http.StatusBadGateway,
			"prose annotator supports English only, got %q", language)
	}
	if strings.TrimSpace(text) == "" {
		return Document{}, nil
	}

	text = norm.NFC.String(text)
	segmented, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return Document{}, apperrors.Newf(apperrors.ErrAnnotation, http.StatusBadGateway, "prose segmentation: %v", err)
	}

	var doc Document
	for _, sent := range segmented.Sentences() {
		if err := ctx.Err(); err != nil {
			return Document{}, apperrors.Newf(apperrors.ErrAnnotation, http.StatusBadGateway, "prose: %v", err)
		}
		tagged, err := prose.NewDocument(sent.Text, prose.WithSegmentation(false))
		if err != nil {
			return Document{}, apperrors.Newf(apperrors.ErrAnnotation, http.StatusBadGateway, "prose tagging: %v", err)
		}
		tokens := tagged.Tokens()
		if len(tokens) == 0 {
			continue
		}
		sentence := Sentence{Tokens: make([]Token, 0, len(tokens))}
		for _, tok := range tokens {
			sentence.Tokens = append(sentence.Tokens, Token{
				Word:  tok.Text,
				Lemma: a.stem(strings.ToLower(tok.Text)),
				POS:   tok.Tag,
				NER:   entityTag(tok.Label),
			})
		}
		doc.Sentences = append(doc.Sentences, sentence)
	}
	a.logger.Debug("document annotated",
		"sentences", len(doc.Sentences),
		"tokens", doc.TokenCount(),
	)
	return doc, nil
}

// entityTag strips the IOB prefix from a prose label ("B-PERSON" -> "PERSON").
func entityTag(label string) string {
	if label == "" || label == NullTag {
		return NullTag
	}
	if i := strings.IndexByte(label, '-'); i == 1 {
		return label[2:]
	}
	return label
}
