package heroku

import "time"

// DynoState is the run state Heroku reports for a single dyno.
type DynoState string

const (
	DynoStateUp       DynoState = "up"
	DynoStateDown     DynoState = "down"
	DynoStateCrashed  DynoState = "crashed"
	DynoStateIdle     DynoState = "idle"
	DynoStateStarting DynoState = "starting"
)

// NamedRef is the {id, name} pair Heroku embeds for stacks, regions and apps.
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// App is the subset of the Heroku app resource we use.
type App struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Stack     NamedRef  `json:"stack"`
	Region    NamedRef  `json:"region"`
}

// Dyno is a single unit of compute for an app.
type Dyno struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Size      string    `json:"size"`
	State     DynoState `json:"state"`
	Command   string    `json:"command"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Formation is the scale setting for one process type.
type Formation struct {
	ID        string    `json:"id"`
	App       NamedRef  `json:"app"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size"`
	Command   string    `json:"command"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppStatus is the running state derived from the dyno list.
type AppStatus struct {
	Running bool   `json:"running"`
	Dynos   []Dyno `json:"dynos"`
}

// Target identifies which process type to scale and to what quantity when
// turning an app on.
type Target struct {
	App         string
	ProcessType string
	Quantity    int
}

// errorBody is Heroku's error envelope.
type errorBody struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type scaleRequest struct {
	Quantity int `json:"quantity"`
}
