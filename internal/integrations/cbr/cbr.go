package cbr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/config"
	"github.com/Dan9191/deposit-service/internal/models"
)

// ErrNoKeyRate is returned when the response holds no key rate rows
var ErrNoKeyRate = errors.New("no key rate data found in XML")

// CBRClient handles integration with Central Bank of Russia
type CBRClient struct {
	url    string
	client *http.Client
	log    *logrus.Logger
	now    func() time.Time
}

// NewCBRClient initializes a new CBR client
func NewCBRClient(cfg *config.Config, log *logrus.Logger) *CBRClient {
	return &CBRClient{
		url: cfg.CBRURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
		now: time.Now,
	}
}

// buildSOAPRequest creates a SOAP request for the key rate over the last 30 days
func (c *CBRClient) buildSOAPRequest() string {
	now := c.now()
	fromDate := now.AddDate(0, 0, -30).Format("2006-01-02")
	toDate := now.Format("2006-01-02")
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, fromDate, toDate)
}

// sendRequest sends SOAP request to CBR
func (c *CBRClient) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("CBR XML response: %s", string(body))

	return body, nil
}

// parseXMLResponse extracts the most recent key rate from the response
func (c *CBRClient) parseXMLResponse(rawBody []byte) (models.KeyRate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return models.KeyRate{}, fmt.Errorf("failed to parse XML: %w", err)
	}

	krElements := doc.FindElements("//diffgram/KeyRate/KR")
	if len(krElements) == 0 {
		return models.KeyRate{}, ErrNoKeyRate
	}

	var latest models.KeyRate
	found := false
	for _, kr := range krElements {
		rateElement := kr.FindElement("./Rate")
		dateElement := kr.FindElement("./DT")
		if rateElement == nil || dateElement == nil {
			continue
		}

		rate, err := strconv.ParseFloat(strings.TrimSpace(rateElement.Text()), 64)
		if err != nil {
			return models.KeyRate{}, fmt.Errorf("failed to parse rate: %w", err)
		}
		date, err := time.Parse(time.RFC3339, strings.TrimSpace(dateElement.Text()))
		if err != nil {
			return models.KeyRate{}, fmt.Errorf("failed to parse date: %w", err)
		}

		if !found || date.After(latest.Date) {
			latest = models.KeyRate{Date: date, Rate: rate}
			found = true
		}
	}

	if !found {
		return models.KeyRate{}, fmt.Errorf("rate element not found in XML")
	}
	return latest, nil
}

// GetKeyRate retrieves the current key rate from CBR
func (c *CBRClient) GetKeyRate(ctx context.Context) (models.KeyRate, error) {
	body, err := c.sendRequest(ctx, c.buildSOAPRequest())
	if err != nil {
		return models.KeyRate{}, err
	}

	rate, err := c.parseXMLResponse(body)
	if err != nil {
		return models.KeyRate{}, err
	}

	c.log.Infof("Retrieved key rate: %.2f%% as of %s", rate.Rate, rate.Date.Format("2006-01-02"))
	return rate, nil
}
