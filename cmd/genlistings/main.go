// Command genlistings generates a deterministic JSONL listing fixture for
// local development and the import test suite. The same seed always yields
// the same file, so fixtures can be regenerated instead of checked in.
//
// Usage:
//
//	go run ./cmd/genlistings -out data/mock/listings.jsonl -count 200 -seed 42
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/flatscout/flatscout/internal/domain"
)

var scrapeClock = clockwork.NewFakeClockAt(
	time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC),
)

type cityDef struct {
	name      string
	districts []string
	lat, lon  float64
}

var cities = []cityDef{
	{"Berlin", []string{"Mitte", "Kreuzberg", "Neukölln", "Wedding"}, 52.5200, 13.4050},
	{"Hamburg", []string{"Altona", "Eimsbüttel", "St. Pauli"}, 53.5511, 9.9937},
	{"Stuttgart", []string{"West", "Süd", "Bad Cannstatt"}, 48.7758, 9.1829},
	{"München", []string{"Schwabing", "Sendling", "Giesing"}, 48.1351, 11.5820},
}

var streets = []string{
	"Hauptstr.", "Bahnhofstr.", "Gartenweg", "Lindenallee", "Schulstr.",
	"Ringstr.", "Bergweg", "Kirchplatz",
}

var roomTypes = []string{"single", "double", "studio"}

var contactNames = []string{"Anna", "Ben", "Clara", "David", "Emre", "Franzi"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the JSONL fixture")
	count := flag.Int("count", 200, "number of listings to generate")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	listings := generate(*count, *seed)

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, l := range listings {
		if err := enc.Encode(l); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	log.Printf("wrote %d listings: %s", len(listings), *out)
	return nil
}

func generate(count int, seed int64) []domain.Listing {
	rng := rand.New(rand.NewSource(seed))
	now := scrapeClock.Now()

	listings := make([]domain.Listing, 0, count)
	for i := 0; i < count; i++ {
		city := cities[rng.Intn(len(cities))]
		district := city.districts[rng.Intn(len(city.districts))]
		id := fmt.Sprintf("wg-%06d", i+1)

		size := float64(8 + rng.Intn(25))
		rent := float64(250 + rng.Intn(600))
		flatmates := float64(1 + rng.Intn(4))
		roomsFree := 1.0
		availableFrom := now.AddDate(0, 0, rng.Intn(60))
		onlineSince := now.Add(-time.Duration(rng.Intn(72)) * time.Hour)

		l := domain.Listing{
			ListingID:     id,
			URL:           "https://www.wg-gesucht.de/" + id + ".html",
			Title:         fmt.Sprintf("%.0fm² Zimmer in %s-%s", size, city.name, district),
			City:          city.name,
			District:      district,
			RoomType:      roomTypes[rng.Intn(len(roomTypes))],
			ContactName:   contactNames[rng.Intn(len(contactNames))],
			Size:          &size,
			Rent:          &rent,
			Flatmates:     &flatmates,
			RoomsFree:     &roomsFree,
			AvailableFrom: &availableFrom,
			OnlineSince:   &onlineSince,
			ScrapedAt:     now,
		}

		// Most listings carry a street address; some only name the district,
		// and a few carry coordinates straight from the source page.
		switch rng.Intn(10) {
		case 0:
			l.Location = &domain.Coordinate{
				Lat: city.lat + (rng.Float64()-0.5)/10,
				Lon: city.lon + (rng.Float64()-0.5)/10,
			}
		case 1, 2:
			// District only.
		default:
			l.Address = fmt.Sprintf("%s %d", streets[rng.Intn(len(streets))], 1+rng.Intn(120))
		}

		// A short-term sublet now and then.
		if rng.Intn(5) == 0 {
			until := availableFrom.AddDate(0, 1+rng.Intn(6), 0)
			l.AvailableUntil = &until
		}

		listings = append(listings, l)
	}
	return listings
}
