package servicebus

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects to Azure Service Bus. A connection string in
// SERVICEBUS_CONNECTION_STRING takes precedence; otherwise the namespace from
// configuration is used with a connection string built from SERVICEBUS_KEY.
func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	if conn := os.Getenv("SERVICEBUS_CONNECTION_STRING"); conn != "" {
		client, err := azservicebus.NewClientFromConnectionString(conn, nil)
		if err != nil {
			return nil, fmt.Errorf("connect service bus: %w", err)
		}
		return client, nil
	}
	if namespace == "" {
		return nil, fmt.Errorf("service bus namespace not configured")
	}
	key := os.Getenv("SERVICEBUS_KEY")
	if key == "" {
		return nil, fmt.Errorf("SERVICEBUS_CONNECTION_STRING or SERVICEBUS_KEY required")
	}
	conn := fmt.Sprintf("Endpoint=sb://%s.servicebus.windows.net/;SharedAccessKeyName=RootManageSharedAccessKey;SharedAccessKey=%s", namespace, key)
	client, err := azservicebus.NewClientFromConnectionString(conn, nil)
	if err != nil {
		return nil, fmt.Errorf("connect service bus namespace %s: %w", namespace, err)
	}
	return client, nil
}
