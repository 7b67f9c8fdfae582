package text

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/speclib/speclib/annotation"
	"github.com/speclib/speclib/attribute"
	"github.com/speclib/speclib/cv"
	"github.com/speclib/speclib/errs"
	"github.com/speclib/speclib/spectrum"
)

type parserState uint8

const (
	stateHeader parserState = iota
	stateAnalyte
	stateInterpretation
	stateMember
	statePeaks
	stateCluster
)

func (s parserState) String() string {
	switch s {
	case stateHeader:
		return "header"
	case stateAnalyte:
		return "analyte"
	case stateInterpretation:
		return "interpretation"
	case stateMember:
		return "interpretation member"
	case statePeaks:
		return "peaks"
	case stateCluster:
		return "cluster"
	default:
		return "unknown"
	}
}

// parsedAttr is one decoded attribute line before it is placed in a store.
type parsedAttr struct {
	key   string
	value attribute.Value
	// group is the source file's group tag, 0 when ungrouped.
	group int
	// setName is non-empty when the line applies an attribute set template
	// instead of storing a literal attribute.
	setName string
}

// entryParser consumes the lines of exactly one library entry and
// produces a fully populated Spectrum or SpectrumCluster. The in-progress
// sub-objects are owned slots that are attached to their parent the
// moment they are created; markers only switch which slot receives
// attribute lines.
type entryParser struct {
	sets        *Sets
	resolver    cv.Resolver
	annotations annotation.Parser
	diags       *[]Diagnostic

	state parserState

	// Source group tags are only meaningful across a contiguous run of
	// lines within one section; both reset on every marker.
	sourceGroup  int
	workingGroup int

	spec    *spectrum.Spectrum
	cluster *spectrum.SpectrumCluster
	analyte *spectrum.Analyte
	interp  *spectrum.Interpretation
	member  *spectrum.InterpretationMember

	specIndex int64
	key       int64
	lineNo    int
}

func newEntryParser(
	sets *Sets,
	resolver cv.Resolver,
	annotations annotation.Parser,
	diags *[]Diagnostic,
	specIndex int64,
) *entryParser {
	return &entryParser{
		sets:        sets,
		resolver:    resolver,
		annotations: annotations,
		diags:       diags,
		state:       stateHeader,
		specIndex:   specIndex,
	}
}

func (p *entryParser) fatal(sentinel error, text, msg string) error {
	return &ParseError{
		Line:       text,
		LineNumber: p.lineNo,
		State:      p.state.String(),
		Key:        p.key,
		Err:        fmt.Errorf("%w: %s", sentinel, msg),
	}
}

// fatalErr is fatal() for errors that already wrap their sentinel.
func (p *entryParser) fatalErr(err error, text string) error {
	return &ParseError{
		Line:       text,
		LineNumber: p.lineNo,
		State:      p.state.String(),
		Key:        p.key,
		Err:        err,
	}
}

func (p *entryParser) warn(code WarningCode, msg string) {
	if p.diags != nil {
		*p.diags = append(*p.diags, Diagnostic{Code: code, Line: p.lineNo, Message: msg})
	}
}

func (p *entryParser) resetGroups() {
	p.sourceGroup = 0
	p.workingGroup = 0
}

// parse runs the state machine over one record's lines. Blank lines end
// the record; comment lines are skipped.
func (p *entryParser) parse(lines []line) (spectrum.Entry, error) {
	for _, ln := range lines {
		p.lineNo = ln.number
		text := strings.TrimSpace(ln.text)
		if text == "" {
			break
		}
		if strings.HasPrefix(text, "#") {
			continue
		}

		var err error
		switch p.state {
		case stateHeader:
			err = p.parseHeader(text)
		case stateAnalyte:
			err = p.parseAnalyte(text)
		case stateInterpretation:
			err = p.parseInterpretation(text)
		case stateMember:
			err = p.parseMember(text)
		case statePeaks:
			err = p.parsePeaks(text)
		case stateCluster:
			err = p.parseCluster(text)
		}
		if err != nil {
			return nil, err
		}
	}

	if p.cluster != nil {
		return p.cluster, nil
	}
	if p.spec == nil {
		return nil, p.fatal(errs.ErrIllegalMarker, "", "record contains no entry marker")
	}
	p.spec.BackfillInterpretations()

	return p.spec, nil
}

func markerKey(m []string, text string) (int64, error) {
	if len(m) < 2 || m[1] == "" {
		return 0, fmt.Errorf("%w: marker %q carries no key", errs.ErrIllegalMarker, text)
	}
	key, err := strconv.ParseInt(strings.TrimSpace(m[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: marker %q key is not an integer", errs.ErrIllegalMarker, text)
	}

	return key, nil
}

func markerID(m []string) string {
	if len(m) < 2 {
		return ""
	}

	return strings.TrimSpace(m[1])
}

func (p *entryParser) parseHeader(text string) error {
	switch {
	case spectrumMarker.MatchString(text):
		if p.spec != nil || p.cluster != nil {
			return p.fatal(errs.ErrIllegalMarker, text, "a record may contain only one entry marker")
		}
		key, err := markerKey(spectrumMarker.FindStringSubmatch(text), text)
		if err != nil {
			return p.fatalErr(err, text)
		}
		p.spec = spectrum.NewSpectrum(key)
		p.spec.Index = p.specIndex
		p.sets.applyAll(attribute.SetKindSpectrum, p.spec.Store)
		p.key = key
		p.resetGroups()

		return nil

	case clusterMarker.MatchString(text):
		if p.spec != nil || p.cluster != nil {
			return p.fatal(errs.ErrIllegalMarker, text, "a record may contain only one entry marker")
		}
		key, err := markerKey(clusterMarker.FindStringSubmatch(text), text)
		if err != nil {
			return p.fatalErr(err, text)
		}
		p.cluster = spectrum.NewCluster(key)
		p.sets.applyAll(attribute.SetKindCluster, p.cluster.Store)
		p.key = key
		p.state = stateCluster
		p.resetGroups()

		return nil

	case peaksMarker.MatchString(text):
		if p.spec == nil {
			return p.fatal(errs.ErrIllegalMarker, text, "<Peaks> before any spectrum")
		}
		p.state = statePeaks
		p.resetGroups()

		return nil

	case interpMarker.MatchString(text):
		if p.spec == nil {
			return p.fatal(errs.ErrIllegalMarker, text, "<Interpretation> before any spectrum")
		}

		return p.startInterpretation(markerID(interpMarker.FindStringSubmatch(text)))

	case analyteMarker.MatchString(text):
		if p.spec == nil {
			return p.fatal(errs.ErrIllegalMarker, text, "<Analyte> before any spectrum")
		}

		return p.startAnalyte(markerID(analyteMarker.FindStringSubmatch(text)))
	}

	if p.spec == nil {
		return p.fatal(errs.ErrIllegalMarker, text, "attribute line before any entry marker")
	}

	return p.spectrumAttribute(text)
}

// spectrumAttribute stores an attribute line on the spectrum, diverting
// the entry key and index bookkeeping terms into their struct fields.
func (p *entryParser) spectrumAttribute(text string) error {
	pa, err := p.parseAttributeLine(text)
	if err != nil {
		return err
	}

	switch pa.key {
	case attribute.SpectrumKey:
		if n, ok := pa.value.(int64); ok {
			p.spec.Key = n
			p.key = n

			return nil
		}
	case attribute.SpectrumIndex:
		if n, ok := pa.value.(int64); ok {
			p.spec.Index = n

			return nil
		}
	}

	return p.addAttribute(p.spec.Store, attribute.SetKindSpectrum, pa, text)
}

func (p *entryParser) startAnalyte(id string) error {
	p.analyte = spectrum.NewAnalyte(id)
	p.sets.applyAll(attribute.SetKindAnalyte, p.analyte.Store)
	p.spec.AddAnalyte(p.analyte)
	p.state = stateAnalyte
	p.resetGroups()

	return nil
}

func (p *entryParser) startInterpretation(id string) error {
	p.interp = spectrum.NewInterpretation(id)
	p.sets.applyAll(attribute.SetKindInterpretation, p.interp.Store)
	p.spec.Interpretations.Add(p.interp)
	p.analyte = nil
	p.member = nil
	p.state = stateInterpretation
	p.resetGroups()

	return nil
}

func (p *entryParser) parseAnalyte(text string) error {
	switch {
	case peaksMarker.MatchString(text):
		p.analyte = nil
		p.state = statePeaks
		p.resetGroups()

		return nil

	case analyteMarker.MatchString(text):
		return p.startAnalyte(markerID(analyteMarker.FindStringSubmatch(text)))

	case interpMarker.MatchString(text):
		if p.interp != nil {
			p.warn(WarnInterleavedSections, "interleaved analyte and interpretation sections")
		}

		return p.startInterpretation(markerID(interpMarker.FindStringSubmatch(text)))

	case spectrumMarker.MatchString(text) || clusterMarker.MatchString(text):
		return p.fatal(errs.ErrIllegalMarker, text, "entry marker inside an analyte section")
	}

	pa, err := p.parseAttributeLine(text)
	if err != nil {
		return err
	}

	return p.addAttribute(p.analyte.Store, attribute.SetKindAnalyte, pa, text)
}

func (p *entryParser) parseInterpretation(text string) error {
	switch {
	case analyteMarker.MatchString(text):
		p.warn(WarnInterleavedSections, "analyte section after an interpretation")

		return p.startAnalyte(markerID(analyteMarker.FindStringSubmatch(text)))

	case interpMarker.MatchString(text):
		return p.startInterpretation(markerID(interpMarker.FindStringSubmatch(text)))

	case peaksMarker.MatchString(text):
		p.state = statePeaks
		p.resetGroups()

		return nil

	case memberMarker.MatchString(text):
		p.member = spectrum.NewInterpretationMember(markerID(memberMarker.FindStringSubmatch(text)))
		p.interp.AddMember(p.member)
		p.state = stateMember
		p.resetGroups()

		return nil

	case spectrumMarker.MatchString(text) || clusterMarker.MatchString(text):
		return p.fatal(errs.ErrIllegalMarker, text, "entry marker inside an interpretation section")
	}

	pa, err := p.parseAttributeLine(text)
	if err != nil {
		return err
	}
	if err := p.addAttribute(p.interp.Store, attribute.SetKindInterpretation, pa, text); err != nil {
		return err
	}
	if pa.key == attribute.AnalyteMixture {
		p.linkMixtureAnalytes(pa.value)
	}

	return nil
}

// linkMixtureAnalytes resolves a declared mixture members list against the
// spectrum's analytes and attaches the referenced ones to the current
// interpretation.
func (p *entryParser) linkMixtureAnalytes(value attribute.Value) {
	var ids []string
	switch v := value.(type) {
	case string:
		ids = strings.Split(v, ",")
	case int64:
		ids = []string{strconv.FormatInt(v, 10)}
	default:
		return
	}
	for _, id := range ids {
		if a := p.spec.Analyte(strings.TrimSpace(id)); a != nil {
			p.interp.AddAnalyte(a)
		}
	}
}

func (p *entryParser) parseMember(text string) error {
	switch {
	case peaksMarker.MatchString(text):
		p.interp = nil
		p.member = nil
		p.state = statePeaks
		p.resetGroups()

		return nil

	case interpMarker.MatchString(text):
		return p.startInterpretation(markerID(interpMarker.FindStringSubmatch(text)))

	case memberMarker.MatchString(text):
		p.member = spectrum.NewInterpretationMember(markerID(memberMarker.FindStringSubmatch(text)))
		p.interp.AddMember(p.member)
		p.resetGroups()

		return nil

	case spectrumMarker.MatchString(text) || clusterMarker.MatchString(text) ||
		analyteMarker.MatchString(text):
		return p.fatal(errs.ErrIllegalMarker, text, "marker not allowed inside an interpretation member")
	}

	pa, err := p.parseAttributeLine(text)
	if err != nil {
		return err
	}

	return p.addAttribute(p.member.Store, attribute.SetKindInterpretation, pa, text)
}

func (p *entryParser) parseCluster(text string) error {
	if spectrumMarker.MatchString(text) || peaksMarker.MatchString(text) ||
		interpMarker.MatchString(text) || analyteMarker.MatchString(text) ||
		memberMarker.MatchString(text) {
		return p.fatal(errs.ErrIllegalMarker, text, "clusters contain only attribute lines")
	}

	pa, err := p.parseAttributeLine(text)
	if err != nil {
		return err
	}

	return p.addAttribute(p.cluster.Store, attribute.SetKindCluster, pa, text)
}

func (p *entryParser) parsePeaks(text string) error {
	if !peakStartPattern.MatchString(text) {
		return p.fatal(errs.ErrMalformedPeakLine, text, "peak line does not start with a number")
	}

	tokens := strings.Split(text, "\t")
	if len(tokens) == 1 && strings.Contains(text, " ") {
		if m := fallbackPeakPattern.FindStringSubmatch(text); m != nil {
			p.warn(WarnSpaceDelimitedPeaks, "space character delimiter found in peak line")
			tokens = m[1:3]
			if m[3] != "" {
				tokens = append(tokens, m[3])
			}
		}
	}
	if len(tokens) < 2 {
		return p.fatal(errs.ErrMalformedPeakLine,
			text, fmt.Sprintf("peak line has %d fields, want at least 2", len(tokens)))
	}

	mz, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return p.fatal(errs.ErrMalformedPeakLine, text, "bad m/z field")
	}
	intensity, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return p.fatal(errs.ErrMalformedPeakLine, text, "bad intensity field")
	}

	peak := spectrum.Peak{MZ: mz, Intensity: intensity}
	if len(tokens) > 2 && tokens[2] != "" && tokens[2] != "?" {
		annotations, err := p.annotations.Parse(tokens[2])
		if err != nil {
			return p.fatal(errs.ErrMalformedPeakLine, text, err.Error())
		}
		peak.Annotations = annotations
	}
	if len(tokens) > 3 {
		for _, agg := range tokens[3:] {
			peak.Aggregations = append(peak.Aggregations, attribute.TryCast(agg))
		}
	}
	p.spec.Peaks = append(p.spec.Peaks, peak)

	return nil
}

// parseAttributeLine decodes one attribute line against the grammar,
// coercing the value through the CV resolver when the term is known.
func (p *entryParser) parseAttributeLine(text string) (parsedAttr, error) {
	pa, err := decodeAttributeLine(text, p.resolver)
	if err != nil {
		return parsedAttr{}, p.fatal(errs.ErrMalformedAttribute, text, err.Error())
	}

	return pa, nil
}

func decodeAttributeLine(text string, resolver cv.Resolver) (parsedAttr, error) {
	if m := keyValuePattern.FindStringSubmatch(text); m != nil {
		term, accession, raw := m[1], m[2], m[4]

		return makeAttr(term, accession, raw, 0, resolver), nil
	}
	if strings.HasPrefix(text, "[") {
		m := groupedKeyValuePattern.FindStringSubmatch(text)
		if m == nil {
			return parsedAttr{}, fmt.Errorf("malformed grouped attribute")
		}
		group, err := strconv.Atoi(m[1])
		if err != nil || group <= 0 {
			return parsedAttr{}, fmt.Errorf("bad group tag %q", m[1])
		}

		return makeAttr(m[2], m[3], m[5], group, resolver), nil
	}
	if name, value, ok := strings.Cut(text, "="); ok {
		return parsedAttr{key: name, value: attribute.TryCast(value)}, nil
	}

	return parsedAttr{}, fmt.Errorf("line matches no attribute grammar")
}

func makeAttr(term, accession, raw string, group int, resolver cv.Resolver) parsedAttr {
	pa := parsedAttr{key: term, value: coerceValue(resolver, accession, raw), group: group}
	if term == attribute.AttributeSetName {
		pa.setName = raw
	}

	return pa
}

func coerceValue(resolver cv.Resolver, accession, raw string) attribute.Value {
	if resolver != nil {
		if term, err := resolver.FindTermFor(accession); err == nil {
			return term.Coerce(raw)
		}
	}

	return attribute.TryCast(raw)
}

// addAttribute places a decoded attribute into store, remapping the source
// group tag to a store-local group id. Consecutive lines sharing one
// source tag land in one local group; a tag change allocates a fresh id.
func (p *entryParser) addAttribute(
	store *attribute.Store, kind attribute.SetKind, pa parsedAttr, text string,
) error {
	group := 0
	if pa.group != 0 {
		if pa.group != p.sourceGroup {
			p.sourceGroup = pa.group
			p.workingGroup = store.NextGroupID()
		}
		group = p.workingGroup
	}

	if pa.setName != "" {
		set, ok := p.sets.Get(kind, pa.setName)
		if !ok {
			return p.fatal(errs.ErrUnknownAttributeSet, text,
				fmt.Sprintf("no %s attribute set named %q", kind, pa.setName))
		}
		set.Apply(store, group)

		return nil
	}

	if group != 0 {
		if err := store.AddWithGroup(pa.key, pa.value, group); err != nil {
			return p.fatal(errs.ErrInvalidGroup, text, err.Error())
		}

		return nil
	}
	store.Add(pa.key, pa.value)

	return nil
}
