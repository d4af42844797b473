package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL points at the public npm registry.
	DefaultBaseURL = "https://registry.npmjs.org"

	metadataBatchSizeConstant     = 10
	modifiedTimeKeyConstant       = "modified"
	metadataFetchFailedMessage    = "registry metadata unavailable"
	metadataLogFieldPackageName   = "package_name"
	metadataLogFieldStatusCode    = "status_code"
	registryURLJoinSeparatorConst = "/"
)

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Metadata captures the registry-derived health signals for one package.
// Instances are constructed per scan and never persisted.
type Metadata struct {
	Name                string
	Deprecated          bool
	DeprecationMessage  string
	LastPublishDate     string
	LastPublishAgeLabel string
	IsStale             bool
}

type packageMetadataDocument struct {
	DistTags distTagsDocument                   `json:"dist-tags"`
	Time     map[string]string                  `json:"time"`
	Versions map[string]versionMetadataDocument `json:"versions"`
}

type distTagsDocument struct {
	Latest string `json:"latest"`
}

type versionMetadataDocument struct {
	Deprecated deprecationField `json:"deprecated"`
}

// deprecationField tolerates the registry's two encodings of deprecation: a
// message string or a bare boolean. An empty message string clears the
// deprecation, matching registry behavior for un-deprecated versions.
type deprecationField struct {
	Deprecated bool
	Message    string
}

func (field *deprecationField) UnmarshalJSON(data []byte) error {
	var messageValue string
	if unmarshalError := json.Unmarshal(data, &messageValue); unmarshalError == nil {
		field.Message = messageValue
		field.Deprecated = len(messageValue) > 0
		return nil
	}

	var booleanValue bool
	if unmarshalError := json.Unmarshal(data, &booleanValue); unmarshalError == nil {
		field.Deprecated = booleanValue
		return nil
	}

	// Unrecognized shapes are treated as "not deprecated" rather than failing
	// the whole document.
	return nil
}

// Client fetches package metadata from an npm-compatible registry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	clock      Clock
	logger     *zap.Logger
}

// NewClient constructs a registry client. Empty baseURL selects the public
// registry; nil collaborators fall back to working defaults.
func NewClient(baseURL string, httpClient *http.Client, clock Clock, logger *zap.Logger) *Client {
	if len(baseURL) == 0 {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, clock: clock, logger: logger}
}

// FetchMetadata retrieves metadata for one package. Any transport failure,
// non-success status, or malformed payload yields absence rather than an
// error: callers tolerate partial data silently.
func (client *Client) FetchMetadata(executionContext context.Context, packageName string) (Metadata, bool) {
	requestURL := client.baseURL + registryURLJoinSeparatorConst + url.PathEscape(packageName)

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, requestURL, nil)
	if requestError != nil {
		return Metadata{}, false
	}

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		client.logger.Debug(metadataFetchFailedMessage, zap.String(metadataLogFieldPackageName, packageName), zap.Error(responseError))
		return Metadata{}, false
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		client.logger.Debug(metadataFetchFailedMessage, zap.String(metadataLogFieldPackageName, packageName), zap.Int(metadataLogFieldStatusCode, response.StatusCode))
		return Metadata{}, false
	}

	var document packageMetadataDocument
	if decodeError := json.NewDecoder(response.Body).Decode(&document); decodeError != nil {
		client.logger.Debug(metadataFetchFailedMessage, zap.String(metadataLogFieldPackageName, packageName), zap.Error(decodeError))
		return Metadata{}, false
	}

	return client.buildMetadata(packageName, document), true
}

// buildMetadata derives the value object from a registry document. The last
// publish date prefers the latest tagged version's publish time, falling back
// to the document-level "modified" timestamp; deprecation is read strictly
// from the latest version's own metadata.
func (client *Client) buildMetadata(packageName string, document packageMetadataDocument) Metadata {
	latestVersion := document.DistTags.Latest

	lastPublishDate := ""
	if len(latestVersion) > 0 {
		if publishTime, recorded := document.Time[latestVersion]; recorded {
			lastPublishDate = publishTime
		} else {
			lastPublishDate = document.Time[modifiedTimeKeyConstant]
		}
	} else {
		lastPublishDate = document.Time[modifiedTimeKeyConstant]
	}

	deprecation := deprecationField{}
	if len(latestVersion) > 0 {
		if latestDocument, described := document.Versions[latestVersion]; described {
			deprecation = latestDocument.Deprecated
		}
	}

	ageLabel, isStale := ClassifyAge(lastPublishDate, client.clock.Now())

	return Metadata{
		Name:                packageName,
		Deprecated:          deprecation.Deprecated,
		DeprecationMessage:  deprecation.Message,
		LastPublishDate:     lastPublishDate,
		LastPublishAgeLabel: ageLabel,
		IsStale:             isStale,
	}
}

// FetchAllMetadata resolves metadata for every supplied package name using
// sequential batches of at most ten concurrent requests. Failed lookups are
// silently excluded; empty input issues no requests.
func (client *Client) FetchAllMetadata(executionContext context.Context, packageNames []string) []Metadata {
	if len(packageNames) == 0 {
		return nil
	}

	resolvedMetadata := make([]Metadata, 0, len(packageNames))

	for batchStart := 0; batchStart < len(packageNames); batchStart += metadataBatchSizeConstant {
		batchEnd := batchStart + metadataBatchSizeConstant
		if batchEnd > len(packageNames) {
			batchEnd = len(packageNames)
		}
		batchNames := packageNames[batchStart:batchEnd]

		batchResults := make([]Metadata, len(batchNames))
		batchResolved := make([]bool, len(batchNames))

		var waitGroup sync.WaitGroup
		for batchIndex, batchPackageName := range batchNames {
			waitGroup.Add(1)
			go func(resultIndex int, packageName string) {
				defer waitGroup.Done()
				batchResults[resultIndex], batchResolved[resultIndex] = client.FetchMetadata(executionContext, packageName)
			}(batchIndex, batchPackageName)
		}
		waitGroup.Wait()

		for batchIndex := range batchResults {
			if batchResolved[batchIndex] {
				resolvedMetadata = append(resolvedMetadata, batchResults[batchIndex])
			}
		}
	}

	return resolvedMetadata
}
