package feedback

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/script"
)

// ProfileSchema is bumped whenever the persisted layout changes.
const ProfileSchema = 1

// ErrSchema is returned when loading a profile written by another schema.
var ErrSchema = errors.New("feedback: unsupported profile schema")

// Profile is a persisted snapshot of recorded feedback.
type Profile struct {
	Schema  int           `msgpack:"schema" cbor:"1,keyasint"`
	RunID   string        `msgpack:"run_id" cbor:"2,keyasint"`
	Created int64         `msgpack:"created" cbor:"3,keyasint"`
	Sites   []SiteProfile `msgpack:"sites" cbor:"4,keyasint"`
}

// SiteProfile is the feedback state of one site.
type SiteProfile struct {
	Site   script.Site       `msgpack:"site" cbor:"1,keyasint"`
	Kinds  KindSet           `msgpack:"kinds" cbor:"2,keyasint"`
	Counts map[string]uint64 `msgpack:"counts" cbor:"3,keyasint"`
	Keys   []string          `msgpack:"keys,omitempty" cbor:"4,keyasint,omitempty"`
}

// Snapshot captures the recorder state.
func (r *Recorder) Snapshot() *Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := newProfile()
	for _, site := range r.sortedSites() {
		st := r.sites[site]
		sp := SiteProfile{Site: site, Kinds: st.kinds, Counts: make(map[string]uint64), Keys: sortedKeys(st.keys)}
		for _, k := range Kinds() {
			if st.counts[k] > 0 {
				sp.Counts[k.String()] = st.counts[k]
			}
		}
		p.Sites = append(p.Sites, sp)
	}
	return p
}

func newProfile() *Profile {
	return &Profile{
		Schema:  ProfileSchema,
		RunID:   uuid.NewString(),
		Created: time.Now().Unix(),
	}
}

// Site returns the record for site, if present.
func (p *Profile) Site(site script.Site) (SiteProfile, bool) {
	for _, sp := range p.Sites {
		if sp.Site == site {
			return sp, true
		}
	}
	return SiteProfile{}, false
}

// Merge unions several profiles into a new one with a fresh run id.
func Merge(profiles ...*Profile) *Profile {
	bySite := make(map[script.Site]*SiteProfile)
	keys := make(map[script.Site]map[string]struct{})
	for _, p := range profiles {
		if p == nil {
			continue
		}
		for _, sp := range p.Sites {
			dst := bySite[sp.Site]
			if dst == nil {
				dst = &SiteProfile{Site: sp.Site, Counts: make(map[string]uint64)}
				bySite[sp.Site] = dst
				keys[sp.Site] = make(map[string]struct{})
			}
			dst.Kinds = dst.Kinds.Union(sp.Kinds)
			for k, n := range sp.Counts {
				dst.Counts[k] += n
			}
			for _, k := range sp.Keys {
				keys[sp.Site][k] = struct{}{}
			}
		}
	}
	out := newProfile()
	for site, sp := range bySite {
		sp.Keys = sortedKeys(keys[site])
		out.Sites = append(out.Sites, *sp)
	}
	slices.SortFunc(out.Sites, func(a, b SiteProfile) int {
		switch {
		case a.Site.Less(b.Site):
			return -1
		case b.Site.Less(a.Site):
			return 1
		}
		return 0
	})
	return out
}

// Format selects the profile encoding.
type Format string

const (
	FormatMsgpack Format = "msgpack"
	FormatCBOR    Format = "cbor"
)

// ParseFormat resolves a format name. The empty string means msgpack.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "msgpack", "mp":
		return FormatMsgpack, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown profile format %q", s)
	}
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return FormatCBOR
	}
	return FormatMsgpack
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("feedback: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode writes p to w.
func Encode(w io.Writer, p *Profile, format Format) error {
	switch format {
	case FormatCBOR:
		return cborEncMode.NewEncoder(w).Encode(p)
	case FormatMsgpack, "":
		return msgpack.NewEncoder(w).Encode(p)
	default:
		return fmt.Errorf("unknown profile format %q", format)
	}
}

// Decode reads a profile from r.
func Decode(r io.Reader, format Format) (*Profile, error) {
	var p Profile
	var err error
	switch format {
	case FormatCBOR:
		err = cbor.NewDecoder(r).Decode(&p)
	case FormatMsgpack, "":
		err = msgpack.NewDecoder(r).Decode(&p)
	default:
		return nil, fmt.Errorf("unknown profile format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("feedback: decode %s profile: %w", format, err)
	}
	if p.Schema != ProfileSchema {
		return nil, fmt.Errorf("%w: %d", ErrSchema, p.Schema)
	}
	return &p, nil
}

// Marshal encodes p into a byte slice.
func Marshal(p *Profile, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes p to path atomically.
func Save(path string, p *Profile, format Format) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if err = Encode(f, p, format); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Load reads a profile from path.
func Load(path string, format Format) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
