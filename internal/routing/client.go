package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/internal/departments"
)

// workOrderRequest is the payload posted to a department endpoint.
type workOrderRequest struct {
	ComplaintID string  `json:"complaintId"`
	Type        string  `json:"type"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	PhotoRef    string  `json:"photoRef,omitempty"`
}

type workOrderResponse struct {
	WorkOrderID string `json:"workOrderId"`
}

// HTTPWorkOrderClient creates work orders against department endpoints over
// HTTP. Timeouts come from the per-attempt context; a timed-out attempt is
// indistinguishable from a failed one to the caller.
type HTTPWorkOrderClient struct {
	http *resty.Client
}

// NewHTTPWorkOrderClient creates the department endpoint client.
func NewHTTPWorkOrderClient() *HTTPWorkOrderClient {
	client := resty.New().
		SetRetryCount(0). // the routing engine owns retries
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &HTTPWorkOrderClient{http: client}
}

// Compile-time check that HTTPWorkOrderClient implements WorkOrderCreator.
var _ WorkOrderCreator = (*HTTPWorkOrderClient)(nil)

// CreateWorkOrder posts the work-order request and returns the department's
// work order ID. Timeouts, transport errors, non-2xx responses, and
// malformed bodies are all reported as errors; the engine treats them alike.
func (c *HTTPWorkOrderClient) CreateWorkOrder(ctx context.Context, dept departments.Department, complaint domain.Complaint) (string, error) {
	var out workOrderResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(workOrderRequest{
			ComplaintID: complaint.ID.String(),
			Type:        string(complaint.Type),
			Address:     complaint.Location.Address,
			Latitude:    complaint.Location.Latitude,
			Longitude:   complaint.Location.Longitude,
			PhotoRef:    complaint.PhotoRef,
		}).
		SetResult(&out).
		Post(dept.EndpointURL)
	if err != nil {
		return "", fmt.Errorf("department endpoint %s: %w", dept.Name, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("department endpoint %s returned status %d", dept.Name, resp.StatusCode())
	}

	if out.WorkOrderID == "" {
		return "", fmt.Errorf("department endpoint %s returned malformed response", dept.Name)
	}

	return out.WorkOrderID, nil
}
