package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/fluenthttp/fluenthttp/internal/logging"
	"github.com/fluenthttp/fluenthttp/internal/request"
	"github.com/fluenthttp/fluenthttp/internal/users"
)

func setupUsersServer() (*httptest.Server, *users.Server, error) {
	dir, err := os.MkdirTemp("", "fluenthttp-demo-")
	if err != nil {
		return nil, nil, err
	}

	srv, err := users.NewServer(users.Config{
		DatabasePath: filepath.Join(dir, "users.db"),
		Logger:       logging.Nop(),
	})
	if err != nil {
		return nil, nil, err
	}

	return httptest.NewServer(srv), srv, nil
}

func main() {
	ts, srv, err := setupUsersServer()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer ts.Close()
	defer srv.Close()

	create, err := request.New(ts.URL+"/users", "POST")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	resp, err := create.
		JSON(map[string]interface{}{"name": "Ada", "job": "Engineer", "age": 36}).
		ExpectStatus(201).
		Done(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	var created users.User
	if err := resp.JSON(&created); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("created: %s (%s, married=%v)\n", created.Name, created.ID, created.IsMarried)

	get, err := request.New(ts.URL+"/users/"+created.ID, "GET")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if _, err := get.ExpectStatus(200).ExpectField("name", "Ada").Done(context.Background()); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	body, _ := get.ResponseText()
	fmt.Printf("got: %v\n", body)
}
