package notes_box

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/2beens/notesbox/internal/telemetry/metrics"
	"github.com/2beens/notesbox/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=notes_repo_mock_test.go -package=notes_box_test

type NotesRepo interface {
	Add(ctx context.Context, note *Note) (*Note, error)
	Get(ctx context.Context, id string) (*Note, error)
	Update(ctx context.Context, note *Note) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Note, error)
}

var (
	//go:embed templates/*.html
	templatesFS embed.FS
	//go:embed static
	staticFS embed.FS

	pageTemplates = template.Must(
		template.New("").
			Funcs(template.FuncMap{"join": strings.Join}).
			ParseFS(templatesFS, "templates/*.html"),
	)
)

type NotesResponse struct {
	Notes []Note `json:"notes"`
	Total int    `json:"total"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type indexPage struct {
	Notes           []Note
	DefaultCategory string
}

type editPage struct {
	Note   *Note
	NoteID string
}

type Handler struct {
	repo    NotesRepo
	metrics *metrics.Manager
}

func NewHandler(
	repo NotesRepo,
	metrics *metrics.Manager,
) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/", handler.handleList).Methods("GET").Name("list-notes")
	router.HandleFunc("/", handler.handleAdd).Methods("POST").Name("add-note")
	router.HandleFunc("/edit/{id}", handler.handleEditForm).Methods("GET").Name("edit-note-form")
	router.HandleFunc("/update/{id}", handler.handleUpdate).Methods("POST").Name("update-note")
	router.HandleFunc("/delete/{id}", handler.handleDelete).Methods("POST").Name("delete-note")
	router.HandleFunc("/api/notes", handler.handleListJSON).Methods("GET").Name("list-notes-json")

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// embedded at build time, cannot be missing
		panic(err)
	}
	router.PathPrefix("/static/").
		Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static)))).
		Methods("GET").
		Name("static")
}

func writeError(w http.ResponseWriter, statusCode int, detail string) {
	resp, err := json.Marshal(errorResponse{Detail: detail})
	if err != nil {
		log.Errorf("marshal error response: %s", err)
		http.Error(w, detail, statusCode)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, statusCode)
}

func writeFormError(w http.ResponseWriter, err error) {
	var formErr *FormError
	if errors.As(err, &formErr) {
		writeError(w, http.StatusUnprocessableEntity, formErr.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}

func renderPage(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Errorf("render %s: %s", name, err)
		writeError(w, http.StatusInternalServerError, "Render error: "+err.Error())
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.HTML, buf.Bytes(), http.StatusOK)
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	notes, err := handler.repo.List(r.Context())
	if err != nil {
		log.Errorf("list notes error: %s", err)
		writeError(w, http.StatusInternalServerError, "List error: "+err.Error())
		return
	}

	renderPage(w, "index.html", indexPage{
		Notes:           notes,
		DefaultCategory: DefaultCategory,
	})
}

func (handler *Handler) handleListJSON(w http.ResponseWriter, r *http.Request) {
	notes, err := handler.repo.List(r.Context())
	if err != nil {
		log.Errorf("list notes error: %s", err)
		writeError(w, http.StatusInternalServerError, "List error: "+err.Error())
		return
	}

	if notes == nil {
		notes = []Note{}
	}

	resp, err := json.Marshal(NotesResponse{
		Notes: notes,
		Total: len(notes),
	})
	if err != nil {
		log.Errorf("marshal notes error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	note, err := noteFromForm(r)
	if err != nil {
		log.Debugf("add new note, invalid form: %s", err)
		writeFormError(w, err)
		return
	}

	addedNote, err := handler.repo.Add(r.Context(), note)
	if err != nil {
		log.Errorf("failed to add new note [%s]: %s", note.Title, err)
		writeError(w, http.StatusInternalServerError, "Database insertion error: "+err.Error())
		return
	}

	handler.metrics.CounterNotesAdded.Inc()
	log.Printf("new note added: [%s] serial %d: %s", addedNote.Title, addedNote.Serial, addedNote.ID)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (handler *Handler) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	note, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) || errors.Is(err, ErrInvalidNoteID) {
			writeError(w, http.StatusNotFound, "Note not found")
			return
		}
		log.Errorf("get note %s: %s", id, err)
		writeError(w, http.StatusInternalServerError, "Get error: "+err.Error())
		return
	}

	renderPage(w, "edit.html", editPage{
		Note:   note,
		NoteID: id,
	})
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	note, err := noteFromForm(r)
	if err != nil {
		log.Debugf("update note %s, invalid form: %s", id, err)
		writeFormError(w, err)
		return
	}
	note.ID = id

	if err := handler.repo.Update(r.Context(), note); err != nil {
		log.Errorf("failed to update note [%s], [%s]: %s", id, note.Title, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Update error: %s", err))
		return
	}

	handler.metrics.CounterNotesUpdated.Inc()
	log.Printf("note updated: [%s]: %s", note.Title, id)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		log.Errorf("failed to delete note %s: %s", id, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Delete error: %s", err))
		return
	}

	handler.metrics.CounterNotesDeleted.Inc()
	log.Printf("note deleted: %s", id)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
