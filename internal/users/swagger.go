package users

//go:generate swag init -g internal/users/server.go -o docs/swagger

// @title Users API
// @version 0.1
// @description Record-oriented CRUD surface used as the standing test target.
// @BasePath /
