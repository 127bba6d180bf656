package apiserver

// registerRoutes wires every API endpoint to its handler.
func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api/v1alpha1").Subrouter()

	// Health
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	// Tasks - scoped by project query param: ?project=xxx
	api.HandleFunc("/tasks", s.handleListTasks).Methods("GET")
	api.HandleFunc("/tasks/{name}", s.handleGetTask).Methods("GET")
	api.HandleFunc("/tasks", s.handleCreateTask).Methods("POST")
	api.HandleFunc("/tasks/{name}", s.handleDeleteTask).Methods("DELETE")

	// Transcripts
	api.HandleFunc("/tasks/{name}/events", s.handleGetEvents).Methods("GET")
}
