package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Mount registers the REST surface on r.
func Mount(r chi.Router, tasks *TaskHandler, users *UserHandler) {
	r.Get("/health", tasks.HealthCheck)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", tasks.ListTasks)   // GET /tasks?status=&limit=
		r.Post("/", tasks.CreateTask) // POST /tasks

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", tasks.GetTask)              // GET /tasks/{id}
			r.Put("/", tasks.UpdateTask)           // PUT /tasks/{id}
			r.Delete("/", tasks.DeleteTask)        // DELETE /tasks/{id}
			r.Put("/status", tasks.ChangeStatus)   // PUT /tasks/{id}/status
			r.Post("/assign", tasks.AssignMembers) // POST /tasks/{id}/assign
		})
	})

	r.Get("/users", users.ListUsers) // GET /users?group=&limit=
}
