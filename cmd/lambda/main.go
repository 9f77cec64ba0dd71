package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"

	"menueditor-backend/internal/config"
	"menueditor-backend/internal/di"
)

var (
	// chiLambda wraps the chi router for API Gateway HTTP APIs.
	chiLambda *chiadapter.ChiLambdaV2

	container *di.Container
)

// init runs during cold start.
func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The container lives for the life of the execution environment, so its
	// cleanup never runs.
	container, _, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	chiLambda = chiadapter.NewV2(container.Router)
}

// Handler is the Lambda function handler.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if cold, since := container.ColdStart.Observe(); cold {
		container.Logger.Info("Cold start request",
			zap.Duration("since_init", since),
			zap.String("request_id", req.RequestContext.RequestID),
		)
	}
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
