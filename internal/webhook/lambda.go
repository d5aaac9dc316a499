package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/ec-order-payments/internal/api/response"
	"github.com/example/ec-order-payments/internal/apperr"
)

// HandleAPIGateway serves a delivery that reached the function through an
// API Gateway proxy integration.
func (r *Router) HandleAPIGateway(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return gatewayResponse(http.StatusBadRequest, response.NewErrorBody(apperr.Validation("body is not valid base64")))
		}
		raw = decoded
	}
	if len(raw) > MaxBodyBytes {
		return gatewayResponse(http.StatusRequestEntityTooLarge, response.NewErrorBody(apperr.Validation("webhook body exceeds %d bytes", MaxBodyBytes)))
	}

	status, body := r.Receive(ctx, raw, header(req.Headers, SignatureHeader))
	return gatewayResponse(status, body)
}

// header looks name up case-insensitively; API Gateway passes header names
// as the client sent them
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func gatewayResponse(status int, body any) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}, nil
}
