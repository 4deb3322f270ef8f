package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"testing"

	"github.com/cucumber/godog"
	"github.com/mwantia/dicomweb"
	"github.com/mwantia/dicomweb/backend/memory"
	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/dicom"
	"github.com/mwantia/dicomweb/dicom/dicomtest"
	"github.com/mwantia/dicomweb/log"
	"github.com/mwantia/dicomweb/server"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// featureContext holds state for a single scenario
type featureContext struct {
	service *dicomweb.Service
	handler http.Handler

	stored   []byte
	response *httptest.ResponseRecorder
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	fc := &featureContext{}

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if fc.service != nil {
			fc.service.Close(ctx)
		}
		return ctx, nil
	})

	sc.Step(`^an empty dicomweb server$`, fc.anEmptyServer)
	sc.Step(`^I store an object with study "([^"]*)", series "([^"]*)", instance "([^"]*)" and modality "([^"]*)"$`, fc.iStoreAnObject)
	sc.Step(`^I store an object with study "([^"]*)", series "([^"]*)", instance "([^"]*)" and modality "([^"]*)" into study "([^"]*)"$`, fc.iStoreAnObjectInto)
	sc.Step(`^I store a batch of (\d+) objects where object (\d+) is malformed$`, fc.iStoreABatch)
	sc.Step(`^I request "([^"]*)"$`, fc.iRequest)
	sc.Step(`^the response status should be (\d+)$`, fc.theResponseStatusShouldBe)
	sc.Step(`^the response should contain (\d+) results?$`, fc.theResponseShouldContain)
	sc.Step(`^result (\d+) should have attribute "([^"]*)" with value "([^"]*)"$`, fc.resultShouldHaveAttribute)
	sc.Step(`^the metadata should equal the snapshot of the stored object$`, fc.theMetadataShouldEqualTheSnapshot)
	sc.Step(`^(\d+) objects? should be stored$`, fc.objectsShouldBeStored)
	sc.Step(`^(\d+) objects? should have failed$`, fc.objectsShouldHaveFailed)
}

func (fc *featureContext) anEmptyServer(ctx context.Context) error {
	svc, err := dicomweb.NewService(memory.NewMemoryBackend(), nil, dicomweb.WithLogger(log.Discard()))
	if err != nil {
		return err
	}
	if err := svc.Open(ctx); err != nil {
		return err
	}

	srv, err := server.NewServer(svc)
	if err != nil {
		return err
	}

	fc.service = svc
	fc.handler = srv.Handler()
	return nil
}

func (fc *featureContext) iStoreAnObject(studyUID, seriesUID, sopUID, modality string) error {
	return fc.iStoreAnObjectInto(studyUID, seriesUID, sopUID, modality, "")
}

func (fc *featureContext) iStoreAnObjectInto(studyUID, seriesUID, sopUID, modality, target string) error {
	content, err := dicomtest.Build(dicomtest.With(dicomtest.Attributes(studyUID, seriesUID, sopUID), tag.Modality, modality))
	if err != nil {
		return err
	}
	fc.stored = content

	path := "/dicomweb/studies"
	if target != "" {
		path += "/" + target
	}
	return fc.post(path, [][]byte{content})
}

func (fc *featureContext) iStoreABatch(count, malformed int) error {
	objects := make([][]byte, 0, count)
	for i := 1; i <= count; i++ {
		if i == malformed {
			objects = append(objects, []byte("not a dicom object"))
			continue
		}

		content, err := dicomtest.Build(dicomtest.Attributes("S1", "SE1", fmt.Sprintf("I%d", i)))
		if err != nil {
			return err
		}
		objects = append(objects, content)
	}

	return fc.post("/dicomweb/studies", objects)
}

func (fc *featureContext) post(path string, objects [][]byte) error {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, content := range objects {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", data.ContentTypeDicom)
		part, err := w.CreatePart(header)
		if err != nil {
			return err
		}
		if _, err := part.Write(content); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "multipart/related; boundary="+w.Boundary())
	fc.response = httptest.NewRecorder()
	fc.handler.ServeHTTP(fc.response, req)

	return nil
}

func (fc *featureContext) iRequest(path string) error {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	fc.response = httptest.NewRecorder()
	fc.handler.ServeHTTP(fc.response, req)

	return nil
}

func (fc *featureContext) theResponseStatusShouldBe(expected int) error {
	if fc.response.Code != expected {
		return fmt.Errorf("expected status %d, got %d\nBody:\n%s", expected, fc.response.Code, fc.response.Body.String())
	}
	return nil
}

func (fc *featureContext) body() (map[string]any, error) {
	var body map[string]any
	if err := json.Unmarshal(fc.response.Body.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("invalid response body: %w", err)
	}
	return body, nil
}

func (fc *featureContext) theResponseShouldContain(expected int) error {
	body, err := fc.body()
	if err != nil {
		return err
	}

	results, _ := body["dicomWebResponse"].([]any)
	if len(results) != expected {
		return fmt.Errorf("expected %d results, got %d", expected, len(results))
	}
	return nil
}

func (fc *featureContext) resultShouldHaveAttribute(index int, tagName, expected string) error {
	body, err := fc.body()
	if err != nil {
		return err
	}

	results, _ := body["dicomWebResponse"].([]any)
	if index < 1 || index > len(results) {
		return fmt.Errorf("result %d does not exist", index)
	}

	raw, err := json.Marshal(results[index-1])
	if err != nil {
		return err
	}
	var object dicom.AttributeObject
	if err := json.Unmarshal(raw, &object); err != nil {
		return err
	}

	attribute, ok := object[tagName]
	if !ok || len(attribute.Value) == 0 {
		return fmt.Errorf("attribute %s is missing", tagName)
	}
	if attribute.Value[0] != expected {
		return fmt.Errorf("expected %s to be %q, got %v", tagName, expected, attribute.Value[0])
	}
	return nil
}

func (fc *featureContext) theMetadataShouldEqualTheSnapshot() error {
	table, err := dicom.DecodeBytes(fc.stored)
	if err != nil {
		return err
	}
	metadata, err := dicom.Extract(table)
	if err != nil {
		return err
	}
	raw, err := dicom.EncodeMetadata(metadata).Marshal()
	if err != nil {
		return err
	}

	var expected any
	if err := json.Unmarshal(raw, &expected); err != nil {
		return err
	}

	body, err := fc.body()
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(body["metadata"], expected) {
		return fmt.Errorf("snapshot mismatch:\n got %v\nwant %v", body["metadata"], expected)
	}
	return nil
}

func (fc *featureContext) objectsShouldBeStored(expected int) error {
	body, err := fc.body()
	if err != nil {
		return err
	}

	results, _ := body["results"].([]any)
	if len(results) != expected {
		return fmt.Errorf("expected %d stored objects, got %d", expected, len(results))
	}
	return nil
}

func (fc *featureContext) objectsShouldHaveFailed(expected int) error {
	body, err := fc.body()
	if err != nil {
		return err
	}

	failures, _ := body["errors"].([]any)
	if len(failures) != expected {
		return fmt.Errorf("expected %d failed objects, got %d", expected, len(failures))
	}
	return nil
}
