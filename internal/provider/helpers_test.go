package provider

import (
	"time"

	"github.com/go-resty/resty/v2"
)

func newTestRestyClient() *resty.Client {
	client := resty.New()
	client.SetTimeout(2 * time.Second)
	client.SetRetryCount(0)
	return client
}
