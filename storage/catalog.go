package storage

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"

	"listing-resolver/models"
)

type catalogEntry struct {
	ModelID     string            `json:"modelID"`
	Shop        string            `json:"shop"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	FeaturesMap map[string]string `json:"featuresMap"`
}

// ReadCatalog reads a catalog file: a JSON object mapping model ids to the
// listings observed for that model.
func ReadCatalog(path string) ([]*models.RawListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %q", path)
	}
	defer f.Close()
	return DecodeCatalog(f)
}

// DecodeCatalog decodes a catalog. Output order is by model id, then by
// position within the model, so runs over the same file see the same order.
func DecodeCatalog(r io.Reader) ([]*models.RawListing, error) {
	var raw map[string][]catalogEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, eris.Wrap(err, "catalog: decode")
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var listings []*models.RawListing
	for _, k := range keys {
		for _, e := range raw[k] {
			modelID := e.ModelID
			if modelID == "" {
				modelID = k
			}
			listings = append(listings, &models.RawListing{
				ModelID:  modelID,
				Shop:     e.Shop,
				Title:    e.Title,
				URL:      e.URL,
				Features: e.FeaturesMap,
			})
		}
	}
	return listings, nil
}
