// Faker generates synthetic data for {{faker.<path>}} placeholders
// (spec.md §4.1 rule 4). No faker library exists anywhere in the
// retrieved example pack, so categories are hand-rolled over small
// fixture word lists, seeded per the deterministic-replay formula
// spec.md §4.1 specifies.
package template

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FakerConfig mirrors internal/testplan.FakerConfig: Locale is accepted
// but only affects the fixture word lists when non-English lists are
// added (none are, currently); Seed, when non-nil, makes every VU's
// faker output deterministic and reproducible across runs.
type FakerConfig struct {
	Locale string
	Seed   *int64
}

// Faker resolves dotted faker paths against per-call derived seeds.
type Faker struct {
	globalSeed *int64

	mu  sync.Mutex
	rng *rand.Rand // only used when globalSeed is unset, reseeded per call
}

func NewFaker(cfg FakerConfig) *Faker {
	return &Faker{globalSeed: cfg.Seed, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// deriveSeed implements spec.md §4.1 rule 4's formula: each faker call
// gets a seed derived from the VU id and iteration so that replaying the
// same (vu_id, iteration) with a fixed global seed reproduces the same
// value, while unseeded runs still vary per call via now_ns/rand16.
func (f *Faker) deriveSeed(vuID, iteration int) int64 {
	var seed int64
	if f.globalSeed != nil {
		seed = *f.globalSeed
	} else {
		f.mu.Lock()
		randPart := f.rng.Int63n(1 << 16)
		f.mu.Unlock()
		seed = time.Now().UnixNano() ^ randPart
	}
	seed ^= int64(vuID) * 100000
	seed ^= int64(iteration) * 1000
	return seed
}

// Resolve evaluates a dotted faker path like "person.firstName" or
// "string.uuid" against a seed derived from (vuID, iteration).
func (f *Faker) Resolve(path string, vuID, iteration int) (string, error) {
	rng := rand.New(rand.NewSource(f.deriveSeed(vuID, iteration)))

	parts := strings.SplitN(path, ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("faker path %q must be category.field", path)
	}
	category, field := parts[0], parts[1]

	switch category {
	case "person":
		return fakePerson(rng, field)
	case "internet":
		return fakeInternet(rng, field)
	case "string":
		return fakeString(rng, field)
	case "number":
		return fakeNumber(rng, field)
	case "location":
		return fakeLocation(rng, field)
	case "commerce":
		return fakeCommerce(rng, field)
	case "date":
		return fakeDate(rng, field)
	case "company":
		return fakeCompany(rng, field)
	case "lorem":
		return fakeLorem(rng, field)
	case "phone":
		return fakePhone(rng, field)
	default:
		return "", fmt.Errorf("faker: unknown category %q", category)
	}
}

func pick(rng *rand.Rand, list []string) string {
	return list[rng.Intn(len(list))]
}

var firstNames = []string{"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda", "David", "Elizabeth"}
var lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}

func fakePerson(rng *rand.Rand, field string) (string, error) {
	switch field {
	case "firstName":
		return pick(rng, firstNames), nil
	case "lastName":
		return pick(rng, lastNames), nil
	case "fullName":
		return pick(rng, firstNames) + " " + pick(rng, lastNames), nil
	case "username":
		return strings.ToLower(pick(rng, firstNames) + "." + pick(rng, lastNames) + strconv.Itoa(rng.Intn(1000))), nil
	default:
		return "", fmt.Errorf("faker.person: unknown field %q", field)
	}
}

var emailDomains = []string{"example.com", "test.org", "mail.net", "sample.io"}

func fakeInternet(rng *rand.Rand, field string) (string, error) {
	switch field {
	case "email":
		return fmt.Sprintf("%s.%s%d@%s", strings.ToLower(pick(rng, firstNames)), strings.ToLower(pick(rng, lastNames)), rng.Intn(100), pick(rng, emailDomains)), nil
	case "ipv4":
		return fmt.Sprintf("%d.%d.%d.%d", rng.Intn(256), rng.Intn(256), rng.Intn(256), rng.Intn(256)), nil
	case "domainName":
		return strings.ToLower(pick(rng, lastNames)) + ".com", nil
	case "url":
		return "https://" + strings.ToLower(pick(rng, lastNames)) + ".com/" + strconv.Itoa(rng.Intn(10000)), nil
	case "userAgent":
		return "Mozilla/5.0 (compatible; vustorm-faker/1.0)", nil
	default:
		return "", fmt.Errorf("faker.internet: unknown field %q", field)
	}
}

func fakeString(rng *rand.Rand, field string) (string, error) {
	switch {
	case field == "uuid":
		return uuid.NewString(), nil
	case field == "alphanumeric":
		return randomAlnum(rng, 12), nil
	case strings.HasPrefix(field, "alphanumeric("):
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(field, "alphanumeric("), ")"))
		if err != nil {
			return "", fmt.Errorf("faker.string.alphanumeric: %w", err)
		}
		return randomAlnum(rng, n), nil
	default:
		return "", fmt.Errorf("faker.string: unknown field %q", field)
	}
}

const alnumAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomAlnum(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alnumAlphabet[rng.Intn(len(alnumAlphabet))]
	}
	return string(b)
}

func fakeNumber(rng *rand.Rand, field string) (string, error) {
	switch {
	case field == "int":
		return strconv.Itoa(rng.Intn(1000)), nil
	case field == "float":
		return strconv.FormatFloat(rng.Float64()*1000, 'f', 2, 64), nil
	case field == "digit":
		return strconv.Itoa(rng.Intn(10)), nil
	default:
		return "", fmt.Errorf("faker.number: unknown field %q", field)
	}
}

var cities = []string{"Springfield", "Riverside", "Fairview", "Franklin", "Greenville", "Bristol", "Clinton", "Madison"}
var countries = []string{"United States", "Canada", "Germany", "Japan", "Brazil", "Australia"}

func fakeLocation(rng *rand.Rand, field string) (string, error) {
	switch field {
	case "city":
		return pick(rng, cities), nil
	case "country":
		return pick(rng, countries), nil
	case "zipCode":
		return fmt.Sprintf("%05d", rng.Intn(100000)), nil
	case "latitude":
		return strconv.FormatFloat(rng.Float64()*180-90, 'f', 6, 64), nil
	case "longitude":
		return strconv.FormatFloat(rng.Float64()*360-180, 'f', 6, 64), nil
	default:
		return "", fmt.Errorf("faker.location: unknown field %q", field)
	}
}

var productNames = []string{"Widget", "Gadget", "Gizmo", "Doohickey", "Thingamajig", "Contraption"}

func fakeCommerce(rng *rand.Rand, field string) (string, error) {
	switch field {
	case "productName":
		return pick(rng, productNames), nil
	case "price":
		return strconv.FormatFloat(rng.Float64()*500+1, 'f', 2, 64), nil
	case "department":
		return pick(rng, []string{"Electronics", "Home", "Garden", "Sports", "Toys"}), nil
	default:
		return "", fmt.Errorf("faker.commerce: unknown field %q", field)
	}
}

func fakeDate(rng *rand.Rand, field string) (string, error) {
	offset := time.Duration(rng.Intn(365*24)) * time.Hour
	switch field {
	case "past":
		return time.Now().Add(-offset).UTC().Format(time.RFC3339), nil
	case "future":
		return time.Now().Add(offset).UTC().Format(time.RFC3339), nil
	case "recent":
		return time.Now().Add(-time.Duration(rng.Intn(24)) * time.Hour).UTC().Format(time.RFC3339), nil
	default:
		return "", fmt.Errorf("faker.date: unknown field %q", field)
	}
}

var companySuffixes = []string{"Inc", "LLC", "Group", "Partners", "Holdings", "Labs"}

func fakeCompany(rng *rand.Rand, field string) (string, error) {
	switch field {
	case "name":
		return pick(rng, lastNames) + " " + pick(rng, companySuffixes), nil
	case "catchPhrase":
		return "Synergizing " + strings.ToLower(pick(rng, productNames)) + " solutions", nil
	default:
		return "", fmt.Errorf("faker.company: unknown field %q", field)
	}
}

var loremWords = []string{"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit", "sed", "do", "eiusmod", "tempor"}

func fakeLorem(rng *rand.Rand, field string) (string, error) {
	switch {
	case field == "word":
		return pick(rng, loremWords), nil
	case field == "sentence":
		n := 6 + rng.Intn(6)
		words := make([]string, n)
		for i := range words {
			words[i] = pick(rng, loremWords)
		}
		sentence := strings.Join(words, " ")
		return strings.ToUpper(sentence[:1]) + sentence[1:] + ".", nil
	case field == "paragraph":
		var sentences []string
		for i := 0; i < 4; i++ {
			s, _ := fakeLorem(rng, "sentence")
			sentences = append(sentences, s)
		}
		return strings.Join(sentences, " "), nil
	default:
		return "", fmt.Errorf("faker.lorem: unknown field %q", field)
	}
}

func fakePhone(rng *rand.Rand, field string) (string, error) {
	switch field {
	case "number":
		return fmt.Sprintf("+1-%03d-%03d-%04d", rng.Intn(900)+100, rng.Intn(900)+100, rng.Intn(10000)), nil
	default:
		return "", fmt.Errorf("faker.phone: unknown field %q", field)
	}
}
