package extract

import (
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/stopwords"
)

// scanState names what sits on top of the phrase stack.
type scanState int

const (
	stateEmpty scanState = iota
	// stateNoun: top is NN/NNS.
	stateNoun
	// stateCompound: top is JJ, waiting for a noun.
	stateCompound
	// stateEntity: top is NNP/NNPS.
	stateEntity
	// stateEntityLink: top is a stopword following a lone proper noun.
	stateEntityLink
)

func (s scanState) String() string {
	switch s {
	case stateEmpty:
		return "EMPTY"
	case stateNoun:
		return "BUILDING_NOUN"
	case stateCompound:
		return "BUILDING_COMPOUND"
	case stateEntity:
		return "BUILDING_ENTITY"
	case stateEntityLink:
		return "BUILDING_ENTITY_LINK"
	default:
		return "UNKNOWN"
	}
}

// scan is the scanner's complete state: the classification of the top token
// and the tokens of the phrase under construction.
type scan struct {
	state scanState
	stack []annotation.Token
}

// CandidateTerms runs the candidate-term scanner over every sentence of doc
// and returns the frequency of each serialized CandidateTerm.
func CandidateTerms(doc annotation.Document, stop stopwords.Set) FrequencyMap {
	freq := make(FrequencyMap)
	for _, sentence := range doc.Sentences {
		for _, term := range scanSentence(sentence, stop) {
			freq.Add(term.Key())
		}
	}
	return freq
}

// scanSentence returns the candidate terms of one sentence in emission order.
// Lookahead never crosses the sentence boundary.
func scanSentence(sentence annotation.Sentence, stop stopwords.Set) []CandidateTerm {
	var (
		terms []CandidateTerm
		s     scan
		term  *CandidateTerm
	)
	tokens := sentence.Tokens
	for i, tok := range tokens {
		var next *annotation.Token
		if i+1 < len(tokens) {
			next = &tokens[i+1]
		}
		s, term = step(s, tok, next, stop)
		if term != nil {
			terms = append(terms, *term)
		}
	}
	if term = finish(s, stop); term != nil {
		terms = append(terms, *term)
	}
	return terms
}

// step is the scanner's transition function. It returns the next state and
// the term closed by this token, if any.
func step(s scan, tok annotation.Token, next *annotation.Token, stop stopwords.Set) (scan, *CandidateTerm) {
	isStop := stopwords.IsStopword(tok.Lemma, tok.Word, stop)

	switch s.state {
	case stateEmpty:
		startable := annotation.IsNoun(tok.POS) || annotation.IsProperNoun(tok.POS) || annotation.IsAdjective(tok.POS)
		if startable && !isStop {
			return push(s, tok, stop), nil
		}
		return s, nil

	case stateEntityLink:
		if annotation.IsProperNoun(tok.POS) {
			s = push(s, tok, stop)
			if next == nil || !annotation.IsProperNoun(next.POS) {
				return closeAs(s.stack, TypeEntity)
			}
			return s, nil
		}
		return closeAs(salvage(s.stack, annotation.IsProperNoun), TypeEntity)

	case stateCompound:
		if annotation.IsNoun(tok.POS) {
			s = push(s, tok, stop)
			if next == nil || !annotation.IsNoun(next.POS) {
				return closeAs(s.stack, TypeCompoundNoun)
			}
			return s, nil
		}
		return scan{}, nil

	case stateNoun:
		if annotation.IsNoun(tok.POS) {
			s = push(s, tok, stop)
			if next == nil || !annotation.IsNoun(next.POS) {
				return closeAs(s.stack, TypeCompoundNoun)
			}
			return s, nil
		}
		nouns := salvage(s.stack, annotation.IsNoun)
		if len(nouns) == 1 {
			return closeAs(nouns, TypeNoun)
		}
		return closeAs(nouns, TypeCompoundNoun)

	case stateEntity:
		if isStop && len(s.stack) == 1 {
			return push(s, tok, stop), nil
		}
		if annotation.IsProperNoun(tok.POS) {
			s = push(s, tok, stop)
			if next == nil || !annotation.IsProperNoun(next.POS) {
				return closeAs(s.stack, TypeEntity)
			}
			return s, nil
		}
		return closeAs(salvage(s.stack, annotation.IsProperNoun), TypeEntity)
	}
	return scan{}, nil
}

// finish closes whatever is left at sentence end. The zero token extends no
// phrase, so it takes each state's salvage or abandon branch.
func finish(s scan, stop stopwords.Set) *CandidateTerm {
	_, term := step(s, annotation.Token{}, nil, stop)
	return term
}

// push appends tok and reclassifies the top of the stack. A stopword on top
// always means a tentative entity link.
func push(s scan, tok annotation.Token, stop stopwords.Set) scan {
	stack := make([]annotation.Token, len(s.stack), len(s.stack)+1)
	copy(stack, s.stack)
	stack = append(stack, tok)

	state := stateEmpty
	switch {
	case stopwords.IsStopword(tok.Lemma, tok.Word, stop):
		state = stateEntityLink
	case annotation.IsNoun(tok.POS):
		state = stateNoun
	case annotation.IsProperNoun(tok.POS):
		state = stateEntity
	case annotation.IsAdjective(tok.POS):
		state = stateCompound
	}
	return scan{state: state, stack: stack}
}

// salvage keeps the stack tokens whose tag satisfies keep.
func salvage(stack []annotation.Token, keep func(pos string) bool) []annotation.Token {
	var out []annotation.Token
	for _, tok := range stack {
		if keep(tok.POS) {
			out = append(out, tok)
		}
	}
	return out
}

// closeAs emits the phrase formed by tokens and resets the scanner. An empty
// phrase emits nothing.
func closeAs(tokens []annotation.Token, typ TermType) (scan, *CandidateTerm) {
	text := joinWords(tokens, true)
	if text == "" {
		return scan{}, nil
	}
	return scan{}, &CandidateTerm{Text: text, Type: typ}
}
