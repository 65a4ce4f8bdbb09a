// --- deneme-server/handlers/student_handlers.go ---

// Package handlers contains the gin HTTP handlers. Each handler is a
// closure over its dependencies so main.go can wire routes without global
// state.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deneme-server/db"
	"deneme-server/models"
)

// CreateStudent registers a student profile.
func CreateStudent(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateStudentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		student := models.Student{
			ID:           uuid.New().String(),
			Name:         req.Name,
			School:       req.School,
			Grade:        req.Grade,
			ClassSection: req.ClassSection,
			Program:      req.Program,
		}
		err := pool.QueryRow(c.Request.Context(), `
			INSERT INTO students (id, name, school, grade, class_section, program)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at
		`, student.ID, student.Name, student.School, student.Grade,
			student.ClassSection, student.Program).Scan(&student.CreatedAt, &student.UpdatedAt)
		if err != nil {
			db.LogError(pool, "create_student", "", "", "", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create student"})
			return
		}

		db.LogSystemEvent(pool, c.GetString("user_email"), "student_created", student.ID, student.Name)
		c.JSON(http.StatusCreated, student)
	}
}

// ListStudents returns all student profiles.
func ListStudents(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := pool.Query(c.Request.Context(), `
			SELECT id, name, school, grade, class_section, program, created_at, updated_at
			FROM students ORDER BY name
		`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list students"})
			return
		}
		defer rows.Close()

		students := []models.Student{}
		for rows.Next() {
			var s models.Student
			if err := rows.Scan(&s.ID, &s.Name, &s.School, &s.Grade, &s.ClassSection,
				&s.Program, &s.CreatedAt, &s.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read students"})
				return
			}
			students = append(students, s)
		}
		c.JSON(http.StatusOK, gin.H{"students": students})
	}
}

// GetStudent returns one student profile.
func GetStudent(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s models.Student
		err := pool.QueryRow(c.Request.Context(), `
			SELECT id, name, school, grade, class_section, program, created_at, updated_at
			FROM students WHERE id = $1
		`, c.Param("student_id")).Scan(&s.ID, &s.Name, &s.School, &s.Grade,
			&s.ClassSection, &s.Program, &s.CreatedAt, &s.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load student"})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}
