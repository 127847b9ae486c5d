package main

import (
	"context"
	"net/http"

	"bodysync/internal/adapter/challenge"
	"bodysync/internal/app"
)

// lambdaResponse mirrors an API Gateway proxy response.
type lambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// handleLambda runs one sync per invocation. Failures are reported in the
// response rather than as an invocation error so the platform does not retry.
func handleLambda(ctx context.Context) (lambdaResponse, error) {
	d, err := setup(ctx, true, challenge.Refuse{})
	if err != nil {
		return toLambda(failure(err)), nil
	}
	defer d.Close()
	return toLambda(d.sync.Run(ctx)), nil
}

func toLambda(res app.Result) lambdaResponse {
	if res.Status == app.StatusSuccess {
		return lambdaResponse{StatusCode: http.StatusOK, Body: res.Message}
	}
	return lambdaResponse{StatusCode: http.StatusInternalServerError, Body: res.Message}
}
